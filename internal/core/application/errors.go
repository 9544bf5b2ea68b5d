package application

import "errors"

var (
	// ErrWalletNotInitialized is returned by any operation invoked before
	// InitWallet.
	ErrWalletNotInitialized = errors.New("wallet is not initialized")
	// ErrWalletAlreadyUnlocked ...
	ErrWalletAlreadyUnlocked = errors.New("wallet is already unlocked")
	// ErrZeroAmount ...
	ErrZeroAmount = errors.New("amount must be greater than zero")
	// ErrNullAddress ...
	ErrNullAddress = errors.New("address must not be null")
	// ErrNullWalletName ...
	ErrNullWalletName = errors.New("wallet name must not be null")
	// ErrZeroFeeRate ...
	ErrZeroFeeRate = errors.New("fee rate must be greater than zero")
	// ErrNotDiscovered is returned when pinning an address index beyond the
	// discovery frontier of the internal chain.
	ErrNotDiscovered = errors.New("address index is beyond the discovery frontier")
	// ErrTxRejected wraps the server-side rejection of a broadcasted
	// transaction. The reserved coins are released before it is returned.
	ErrTxRejected = errors.New("transaction rejected by the network")
)
