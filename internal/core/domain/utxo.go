package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// UtxoKey uniquely identifies an unspent output.
type UtxoKey struct {
	TxID string
	VOut uint32
}

func (k UtxoKey) String() string {
	return fmt.Sprintf("%s:%d", k.TxID, k.VOut)
}

// Utxo is an output owned by the wallet, tracked through its whole
// lifecycle: unconfirmed or confirmed, available, locked by an in-flight
// send or spent.
type Utxo struct {
	UtxoKey
	Value          uint64
	Address        string
	Script         []byte
	ScriptHash     string
	DerivationPath string
	Confirmed      bool
	Spent          bool
	Locked         bool
	LockedBy       *uuid.UUID
}

// Key returns the identifier of the utxo.
func (u *Utxo) Key() UtxoKey {
	return u.UtxoKey
}

// IsAvailable returns whether the utxo can be selected to fund a new
// transaction.
func (u *Utxo) IsAvailable() bool {
	return !u.Spent && !u.Locked
}

// Lock reserves the utxo for the operation identified by the given id. A
// utxo already locked by the same operation stays locked; one locked by
// another operation makes the reservation fail.
func (u *Utxo) Lock(id *uuid.UUID) error {
	if u.Spent {
		return ErrUtxoNotAvailable
	}
	if u.Locked {
		if u.LockedBy != nil && *u.LockedBy == *id {
			return nil
		}
		return ErrUtxoAlreadyLocked
	}
	u.Locked = true
	u.LockedBy = id
	return nil
}

// Unlock releases the reservation and makes the utxo available again.
func (u *Utxo) Unlock() {
	u.Locked = false
	u.LockedBy = nil
}

// Spend marks the utxo as consumed by a broadcasted transaction. Spending is
// terminal, the utxo can never become available again.
func (u *Utxo) Spend() {
	u.Spent = true
	u.Locked = false
	u.LockedBy = nil
}

// Confirm marks the utxo as included in a block.
func (u *Utxo) Confirm() {
	u.Confirmed = true
}
