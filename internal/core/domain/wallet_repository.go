package domain

import "context"

// WalletRepository is the persistence boundary of the Wallet entity.
type WalletRepository interface {
	// GetOrCreateWallet returns the stored wallet, creating it from the
	// given one when none exists yet.
	GetOrCreateWallet(ctx context.Context, wallet *Wallet) (*Wallet, error)
	// GetWallet returns the stored wallet or ErrWalletNotFound.
	GetWallet(ctx context.Context) (*Wallet, error)
	// UpdateWallet atomically applies the given update function to the
	// stored wallet and persists the result.
	UpdateWallet(
		ctx context.Context,
		updateFn func(w *Wallet) (*Wallet, error),
	) error
	// DeleteWallet removes the stored wallet or returns ErrWalletNotFound.
	DeleteWallet(ctx context.Context) error
}
