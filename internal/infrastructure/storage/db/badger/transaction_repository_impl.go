package dbbadger

import (
	"context"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/faro-wallet/faro-daemon/internal/core/domain"
)

type transactionRepositoryImpl struct {
	db *DbManager
}

// NewTransactionRepositoryImpl returns the badger implementation of the
// transaction repository.
func NewTransactionRepositoryImpl(db *DbManager) domain.TransactionRepository {
	return transactionRepositoryImpl{
		db: db,
	}
}

func (r transactionRepositoryImpl) AddOrUpdateTransaction(
	_ context.Context, tx *domain.Transaction,
) error {
	return r.db.Store.Upsert(tx.Key(), *tx)
}

func (r transactionRepositoryImpl) GetAllTransactions(
	_ context.Context,
) ([]domain.Transaction, error) {
	txs, err := r.findTransactions(&badgerhold.Query{})
	if err != nil {
		return nil, err
	}
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].Timestamp > txs[j].Timestamp
	})
	return txs, nil
}

func (r transactionRepositoryImpl) GetTransactionsForTxID(
	_ context.Context, txid string,
) ([]domain.Transaction, error) {
	txs, err := r.findTransactions(badgerhold.Where("TxID").Eq(txid))
	if err != nil {
		return nil, err
	}
	if len(txs) <= 0 {
		return nil, domain.ErrTransactionNotFound
	}
	return txs, nil
}

func (r transactionRepositoryImpl) ConfirmTransaction(
	ctx context.Context, txid string, height int32,
) error {
	txs, err := r.GetTransactionsForTxID(ctx, txid)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		tx.Confirm(height)
		if err := r.db.Store.Upsert(tx.Key(), tx); err != nil {
			return err
		}
	}
	return nil
}

func (r transactionRepositoryImpl) GetPendingTransactions(
	_ context.Context,
) ([]domain.Transaction, error) {
	return r.findTransactions(badgerhold.Where("Pending").Eq(true))
}

func (r transactionRepositoryImpl) findTransactions(
	query *badgerhold.Query,
) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if err := r.db.Store.Find(&txs, query); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = make([]domain.Transaction, 0)
	}
	return txs, nil
}

func (r transactionRepositoryImpl) DeleteAllTransactions(
	_ context.Context,
) error {
	return r.db.Store.DeleteMatching(&domain.Transaction{}, &badgerhold.Query{})
}
