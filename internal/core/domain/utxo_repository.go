package domain

import (
	"context"

	"github.com/google/uuid"
)

// UtxoRepository is the persistence boundary of the Utxo entity. LockUtxos
// is the only reservation primitive: it verifies and reserves the whole
// batch atomically, so two concurrent sends can never fund themselves with
// the same coin.
type UtxoRepository interface {
	// AddUtxos inserts the utxos not yet stored and returns how many were
	// actually added.
	AddUtxos(ctx context.Context, utxos []Utxo) (int, error)
	// GetAllUtxos returns every stored utxo whatever its state.
	GetAllUtxos(ctx context.Context) ([]Utxo, error)
	// GetAvailableUtxos returns the utxos that are neither spent nor
	// locked.
	GetAvailableUtxos(ctx context.Context) ([]Utxo, error)
	// GetUtxosForScriptHash returns the stored utxos paying the given
	// script hash.
	GetUtxosForScriptHash(ctx context.Context, scriptHash string) ([]Utxo, error)
	// GetBalance returns the confirmed and unconfirmed sum of the
	// unspent utxos.
	GetBalance(ctx context.Context) (confirmed, unconfirmed uint64, err error)
	// LockUtxos reserves the whole batch for the operation identified by
	// id, or fails without reserving anything if any of them is missing,
	// spent or already locked by another operation.
	LockUtxos(ctx context.Context, keys []UtxoKey, id uuid.UUID) error
	// UnlockUtxos releases every utxo reserved by the given operation.
	UnlockUtxos(ctx context.Context, id uuid.UUID) error
	// SpendUtxos terminally marks the given utxos as spent.
	SpendUtxos(ctx context.Context, keys []UtxoKey) error
	// ConfirmUtxos marks the given utxos as included in a block.
	ConfirmUtxos(ctx context.Context, keys []UtxoKey) error
	// ReplaceUtxosForScriptHash reconciles the stored utxos of a script
	// hash with the fresh set reported by the server, preserving the
	// lock and spend state of the surviving ones.
	ReplaceUtxosForScriptHash(
		ctx context.Context, scriptHash string, utxos []Utxo,
	) error
	// DeleteAllUtxos wipes the whole utxo set, invoked when the wallet is
	// deleted.
	DeleteAllUtxos(ctx context.Context) error
}
