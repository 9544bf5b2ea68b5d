package inmemory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/faro-wallet/faro-daemon/internal/core/domain"
)

// UtxoRepositoryImpl is the in-memory implementation of the utxo repository.
type UtxoRepositoryImpl struct {
	utxos map[domain.UtxoKey]domain.Utxo
	lock  *sync.RWMutex
}

// NewUtxoRepositoryImpl returns a new empty in-memory utxo repository.
func NewUtxoRepositoryImpl() domain.UtxoRepository {
	return &UtxoRepositoryImpl{
		utxos: make(map[domain.UtxoKey]domain.Utxo),
		lock:  &sync.RWMutex{},
	}
}

func (r *UtxoRepositoryImpl) AddUtxos(
	_ context.Context, utxos []domain.Utxo,
) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	count := 0
	for _, u := range utxos {
		if _, ok := r.utxos[u.Key()]; ok {
			continue
		}
		r.utxos[u.Key()] = u
		count++
	}
	return count, nil
}

func (r *UtxoRepositoryImpl) GetAllUtxos(
	_ context.Context,
) ([]domain.Utxo, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	utxos := make([]domain.Utxo, 0, len(r.utxos))
	for _, u := range r.utxos {
		utxos = append(utxos, u)
	}
	return utxos, nil
}

func (r *UtxoRepositoryImpl) GetAvailableUtxos(
	_ context.Context,
) ([]domain.Utxo, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	utxos := make([]domain.Utxo, 0, len(r.utxos))
	for _, u := range r.utxos {
		if u.IsAvailable() {
			utxos = append(utxos, u)
		}
	}
	return utxos, nil
}

func (r *UtxoRepositoryImpl) GetUtxosForScriptHash(
	_ context.Context, scriptHash string,
) ([]domain.Utxo, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	utxos := make([]domain.Utxo, 0)
	for _, u := range r.utxos {
		if u.ScriptHash == scriptHash {
			utxos = append(utxos, u)
		}
	}
	return utxos, nil
}

func (r *UtxoRepositoryImpl) GetBalance(
	_ context.Context,
) (uint64, uint64, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	confirmed, unconfirmed := uint64(0), uint64(0)
	for _, u := range r.utxos {
		if u.Spent {
			continue
		}
		if u.Confirmed {
			confirmed += u.Value
		} else {
			unconfirmed += u.Value
		}
	}
	return confirmed, unconfirmed, nil
}

func (r *UtxoRepositoryImpl) LockUtxos(
	_ context.Context, keys []domain.UtxoKey, id uuid.UUID,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	// verify the whole batch before touching anything
	for _, key := range keys {
		u, ok := r.utxos[key]
		if !ok {
			return domain.ErrUtxoNotFound
		}
		if u.Spent {
			return domain.ErrUtxoNotAvailable
		}
		if u.Locked && (u.LockedBy == nil || *u.LockedBy != id) {
			return domain.ErrUtxoAlreadyLocked
		}
	}
	for _, key := range keys {
		u := r.utxos[key]
		if err := u.Lock(&id); err != nil {
			return err
		}
		r.utxos[key] = u
	}
	return nil
}

func (r *UtxoRepositoryImpl) UnlockUtxos(
	_ context.Context, id uuid.UUID,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for key, u := range r.utxos {
		if u.Locked && u.LockedBy != nil && *u.LockedBy == id {
			u.Unlock()
			r.utxos[key] = u
		}
	}
	return nil
}

func (r *UtxoRepositoryImpl) SpendUtxos(
	_ context.Context, keys []domain.UtxoKey,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, key := range keys {
		u, ok := r.utxos[key]
		if !ok {
			return domain.ErrUtxoNotFound
		}
		u.Spend()
		r.utxos[key] = u
	}
	return nil
}

func (r *UtxoRepositoryImpl) ConfirmUtxos(
	_ context.Context, keys []domain.UtxoKey,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, key := range keys {
		u, ok := r.utxos[key]
		if !ok {
			return domain.ErrUtxoNotFound
		}
		u.Confirm()
		r.utxos[key] = u
	}
	return nil
}

func (r *UtxoRepositoryImpl) ReplaceUtxosForScriptHash(
	_ context.Context, scriptHash string, utxos []domain.Utxo,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	fresh := make(map[domain.UtxoKey]domain.Utxo, len(utxos))
	for _, u := range utxos {
		fresh[u.Key()] = u
	}

	for key, u := range r.utxos {
		if u.ScriptHash != scriptHash {
			continue
		}
		incoming, ok := fresh[key]
		if !ok {
			// the server no longer reports it: consumed by a tx of ours
			// already marked spent, or by an external sweep
			u.Spend()
			r.utxos[key] = u
			continue
		}
		// keep the local reservation state, refresh the confirmation
		u.Confirmed = incoming.Confirmed
		r.utxos[key] = u
		delete(fresh, key)
	}
	for key, u := range fresh {
		r.utxos[key] = u
	}
	return nil
}

func (r *UtxoRepositoryImpl) DeleteAllUtxos(_ context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.utxos = make(map[domain.UtxoKey]domain.Utxo)
	return nil
}
