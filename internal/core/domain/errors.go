package domain

import "errors"

var (
	// ErrWalletNotFound ...
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrWalletAlreadyExisting ...
	ErrWalletAlreadyExisting = errors.New("wallet already existing")
	// ErrWalletLocked ...
	ErrWalletLocked = errors.New("wallet must be unlocked to perform this operation")
	// ErrInvalidPassphrase ...
	ErrInvalidPassphrase = errors.New("passphrase is not valid")
	// ErrUtxoNotFound ...
	ErrUtxoNotFound = errors.New("utxo not found")
	// ErrUtxoAlreadyLocked is returned when trying to lock a utxo already
	// reserved by another operation.
	ErrUtxoAlreadyLocked = errors.New("utxo is already locked")
	// ErrUtxoNotAvailable is returned when trying to lock a spent utxo.
	ErrUtxoNotAvailable = errors.New("utxo is spent or otherwise not available")
	// ErrTransactionNotFound ...
	ErrTransactionNotFound = errors.New("transaction not found")
)
