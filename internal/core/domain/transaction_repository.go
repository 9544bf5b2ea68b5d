package domain

import "context"

// TransactionRepository is the persistence boundary of the wallet history.
type TransactionRepository interface {
	// AddOrUpdateTransaction upserts a history entry by its Key.
	AddOrUpdateTransaction(ctx context.Context, tx *Transaction) error
	// GetAllTransactions returns the whole history, most recent first.
	GetAllTransactions(ctx context.Context) ([]Transaction, error)
	// GetTransactionsForTxID returns the history entries for a
	// transaction id, one per type.
	GetTransactionsForTxID(ctx context.Context, txid string) ([]Transaction, error)
	// ConfirmTransaction records the block inclusion of every entry of
	// the given transaction id.
	ConfirmTransaction(ctx context.Context, txid string, height int32) error
	// GetPendingTransactions returns the entries still waiting for a
	// confirmation.
	GetPendingTransactions(ctx context.Context) ([]Transaction, error)
	// DeleteAllTransactions wipes the whole history, invoked when the
	// wallet is deleted.
	DeleteAllTransactions(ctx context.Context) error
}
