package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/faro-wallet/faro-daemon/internal/core/domain"
)

// TransactionRepositoryImpl is the in-memory implementation of the
// transaction repository.
type TransactionRepositoryImpl struct {
	txs  map[string]domain.Transaction
	lock *sync.RWMutex
}

// NewTransactionRepositoryImpl returns a new empty in-memory transaction
// repository.
func NewTransactionRepositoryImpl() domain.TransactionRepository {
	return &TransactionRepositoryImpl{
		txs:  make(map[string]domain.Transaction),
		lock: &sync.RWMutex{},
	}
}

func (r *TransactionRepositoryImpl) AddOrUpdateTransaction(
	_ context.Context, tx *domain.Transaction,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.txs[tx.Key()] = *tx
	return nil
}

func (r *TransactionRepositoryImpl) GetAllTransactions(
	_ context.Context,
) ([]domain.Transaction, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	txs := make([]domain.Transaction, 0, len(r.txs))
	for _, tx := range r.txs {
		txs = append(txs, tx)
	}
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].Timestamp > txs[j].Timestamp
	})
	return txs, nil
}

func (r *TransactionRepositoryImpl) GetTransactionsForTxID(
	_ context.Context, txid string,
) ([]domain.Transaction, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	txs := make([]domain.Transaction, 0, 2)
	for _, tx := range r.txs {
		if tx.TxID == txid {
			txs = append(txs, tx)
		}
	}
	if len(txs) <= 0 {
		return nil, domain.ErrTransactionNotFound
	}
	return txs, nil
}

func (r *TransactionRepositoryImpl) ConfirmTransaction(
	_ context.Context, txid string, height int32,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	found := false
	for key, tx := range r.txs {
		if tx.TxID == txid {
			tx.Confirm(height)
			r.txs[key] = tx
			found = true
		}
	}
	if !found {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepositoryImpl) GetPendingTransactions(
	_ context.Context,
) ([]domain.Transaction, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	txs := make([]domain.Transaction, 0)
	for _, tx := range r.txs {
		if tx.Pending {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

func (r *TransactionRepositoryImpl) DeleteAllTransactions(
	_ context.Context,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.txs = make(map[string]domain.Transaction)
	return nil
}
