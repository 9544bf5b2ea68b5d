package dbbadger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/faro-wallet/faro-daemon/internal/core/domain"
)

type utxoRepositoryImpl struct {
	db *DbManager
}

// NewUtxoRepositoryImpl returns the badger implementation of the utxo
// repository. Every reservation runs inside a single badger transaction so
// the verify-then-lock of a batch is atomic.
func NewUtxoRepositoryImpl(db *DbManager) domain.UtxoRepository {
	return utxoRepositoryImpl{
		db: db,
	}
}

func (r utxoRepositoryImpl) AddUtxos(
	_ context.Context, utxos []domain.Utxo,
) (int, error) {
	count := 0
	err := r.db.UtxoStore.Badger().Update(func(tx *badger.Txn) error {
		for _, u := range utxos {
			if err := r.db.UtxoStore.TxInsert(tx, u.Key(), u); err != nil {
				if errors.Is(err, badgerhold.ErrKeyExists) {
					continue
				}
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r utxoRepositoryImpl) GetAllUtxos(
	_ context.Context,
) ([]domain.Utxo, error) {
	return r.findUtxos(&badgerhold.Query{})
}

func (r utxoRepositoryImpl) GetAvailableUtxos(
	_ context.Context,
) ([]domain.Utxo, error) {
	query := badgerhold.Where("Spent").Eq(false).
		And("Locked").Eq(false)
	return r.findUtxos(query)
}

func (r utxoRepositoryImpl) GetUtxosForScriptHash(
	_ context.Context, scriptHash string,
) ([]domain.Utxo, error) {
	query := badgerhold.Where("ScriptHash").Eq(scriptHash)
	return r.findUtxos(query)
}

func (r utxoRepositoryImpl) GetBalance(
	_ context.Context,
) (uint64, uint64, error) {
	unspents, err := r.findUtxos(badgerhold.Where("Spent").Eq(false))
	if err != nil {
		return 0, 0, err
	}

	confirmed, unconfirmed := uint64(0), uint64(0)
	for _, u := range unspents {
		if u.Confirmed {
			confirmed += u.Value
		} else {
			unconfirmed += u.Value
		}
	}
	return confirmed, unconfirmed, nil
}

func (r utxoRepositoryImpl) LockUtxos(
	_ context.Context, keys []domain.UtxoKey, id uuid.UUID,
) error {
	return r.db.UtxoStore.Badger().Update(func(tx *badger.Txn) error {
		utxos := make([]domain.Utxo, 0, len(keys))
		// verify the whole batch before touching anything
		for _, key := range keys {
			var u domain.Utxo
			if err := r.db.UtxoStore.TxGet(tx, key, &u); err != nil {
				if errors.Is(err, badgerhold.ErrNotFound) {
					return domain.ErrUtxoNotFound
				}
				return err
			}
			if u.Spent {
				return domain.ErrUtxoNotAvailable
			}
			if u.Locked && (u.LockedBy == nil || *u.LockedBy != id) {
				return domain.ErrUtxoAlreadyLocked
			}
			utxos = append(utxos, u)
		}
		for _, u := range utxos {
			if err := u.Lock(&id); err != nil {
				return err
			}
			if err := r.db.UtxoStore.TxUpdate(tx, u.Key(), u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r utxoRepositoryImpl) UnlockUtxos(
	_ context.Context, id uuid.UUID,
) error {
	return r.db.UtxoStore.Badger().Update(func(tx *badger.Txn) error {
		var utxos []domain.Utxo
		query := badgerhold.Where("Locked").Eq(true)
		if err := r.db.UtxoStore.TxFind(tx, &utxos, query); err != nil {
			return err
		}
		for _, u := range utxos {
			if u.LockedBy == nil || *u.LockedBy != id {
				continue
			}
			u.Unlock()
			if err := r.db.UtxoStore.TxUpdate(tx, u.Key(), u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r utxoRepositoryImpl) SpendUtxos(
	_ context.Context, keys []domain.UtxoKey,
) error {
	return r.db.UtxoStore.Badger().Update(func(tx *badger.Txn) error {
		for _, key := range keys {
			var u domain.Utxo
			if err := r.db.UtxoStore.TxGet(tx, key, &u); err != nil {
				if errors.Is(err, badgerhold.ErrNotFound) {
					return domain.ErrUtxoNotFound
				}
				return err
			}
			u.Spend()
			if err := r.db.UtxoStore.TxUpdate(tx, key, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r utxoRepositoryImpl) ConfirmUtxos(
	_ context.Context, keys []domain.UtxoKey,
) error {
	return r.db.UtxoStore.Badger().Update(func(tx *badger.Txn) error {
		for _, key := range keys {
			var u domain.Utxo
			if err := r.db.UtxoStore.TxGet(tx, key, &u); err != nil {
				if errors.Is(err, badgerhold.ErrNotFound) {
					return domain.ErrUtxoNotFound
				}
				return err
			}
			u.Confirm()
			if err := r.db.UtxoStore.TxUpdate(tx, key, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r utxoRepositoryImpl) ReplaceUtxosForScriptHash(
	_ context.Context, scriptHash string, utxos []domain.Utxo,
) error {
	return r.db.UtxoStore.Badger().Update(func(tx *badger.Txn) error {
		var stored []domain.Utxo
		query := badgerhold.Where("ScriptHash").Eq(scriptHash)
		if err := r.db.UtxoStore.TxFind(tx, &stored, query); err != nil {
			return err
		}

		fresh := make(map[domain.UtxoKey]domain.Utxo, len(utxos))
		for _, u := range utxos {
			fresh[u.Key()] = u
		}

		for _, u := range stored {
			incoming, ok := fresh[u.Key()]
			if !ok {
				u.Spend()
				if err := r.db.UtxoStore.TxUpdate(tx, u.Key(), u); err != nil {
					return err
				}
				continue
			}
			// keep the local reservation state, refresh the confirmation
			u.Confirmed = incoming.Confirmed
			if err := r.db.UtxoStore.TxUpdate(tx, u.Key(), u); err != nil {
				return err
			}
			delete(fresh, u.Key())
		}
		for key, u := range fresh {
			if err := r.db.UtxoStore.TxUpsert(tx, key, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r utxoRepositoryImpl) findUtxos(
	query *badgerhold.Query,
) ([]domain.Utxo, error) {
	var utxos []domain.Utxo
	if err := r.db.UtxoStore.Find(&utxos, query); err != nil {
		return nil, err
	}
	if utxos == nil {
		utxos = make([]domain.Utxo, 0)
	}
	return utxos, nil
}

func (r utxoRepositoryImpl) DeleteAllUtxos(_ context.Context) error {
	return r.db.UtxoStore.DeleteMatching(&domain.Utxo{}, &badgerhold.Query{})
}
