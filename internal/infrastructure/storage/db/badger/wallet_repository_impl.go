package dbbadger

import (
	"context"
	"errors"

	"github.com/timshannon/badgerhold/v4"

	"github.com/faro-wallet/faro-daemon/internal/core/domain"
)

const walletKey = "wallet"

type walletRepositoryImpl struct {
	db *DbManager
}

// NewWalletRepositoryImpl returns the badger implementation of the wallet
// repository.
func NewWalletRepositoryImpl(db *DbManager) domain.WalletRepository {
	return walletRepositoryImpl{
		db: db,
	}
}

func (r walletRepositoryImpl) GetOrCreateWallet(
	_ context.Context, wallet *domain.Wallet,
) (*domain.Wallet, error) {
	stored, err := r.getWallet()
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, err
	}
	if wallet == nil {
		return nil, domain.ErrWalletNotFound
	}

	if err := r.db.Store.Insert(walletKey, wallet); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return nil, domain.ErrWalletAlreadyExisting
		}
		return nil, err
	}
	w := *wallet
	return &w, nil
}

func (r walletRepositoryImpl) GetWallet(
	_ context.Context,
) (*domain.Wallet, error) {
	return r.getWallet()
}

func (r walletRepositoryImpl) UpdateWallet(
	_ context.Context,
	updateFn func(w *domain.Wallet) (*domain.Wallet, error),
) error {
	wallet, err := r.getWallet()
	if err != nil {
		return err
	}

	updated, err := updateFn(wallet)
	if err != nil {
		return err
	}

	return r.db.Store.Update(walletKey, updated)
}

func (r walletRepositoryImpl) getWallet() (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := r.db.Store.Get(walletKey, &wallet); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r walletRepositoryImpl) DeleteWallet(_ context.Context) error {
	if err := r.db.Store.Delete(walletKey, domain.Wallet{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrWalletNotFound
		}
		return err
	}
	return nil
}
