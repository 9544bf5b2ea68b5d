package inmemory

import (
	"context"
	"sync"

	"github.com/faro-wallet/faro-daemon/internal/core/domain"
)

// WalletRepositoryImpl is the in-memory implementation of the wallet
// repository, used by tests and by the daemon in inmemory db mode.
type WalletRepositoryImpl struct {
	wallet *domain.Wallet
	lock   *sync.RWMutex
}

// NewWalletRepositoryImpl returns a new empty in-memory wallet repository.
func NewWalletRepositoryImpl() domain.WalletRepository {
	return &WalletRepositoryImpl{
		lock: &sync.RWMutex{},
	}
}

func (r *WalletRepositoryImpl) GetOrCreateWallet(
	_ context.Context, wallet *domain.Wallet,
) (*domain.Wallet, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.wallet != nil {
		w := *r.wallet
		return &w, nil
	}
	if wallet == nil {
		return nil, domain.ErrWalletNotFound
	}
	w := *wallet
	r.wallet = &w
	out := w
	return &out, nil
}

func (r *WalletRepositoryImpl) GetWallet(
	_ context.Context,
) (*domain.Wallet, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if r.wallet == nil {
		return nil, domain.ErrWalletNotFound
	}
	w := *r.wallet
	return &w, nil
}

func (r *WalletRepositoryImpl) UpdateWallet(
	_ context.Context,
	updateFn func(w *domain.Wallet) (*domain.Wallet, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.wallet == nil {
		return domain.ErrWalletNotFound
	}
	w := *r.wallet
	updated, err := updateFn(&w)
	if err != nil {
		return err
	}
	r.wallet = updated
	return nil
}

func (r *WalletRepositoryImpl) DeleteWallet(_ context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.wallet == nil {
		return domain.ErrWalletNotFound
	}
	r.wallet = nil
	return nil
}
