package domain

// TxType classifies a wallet transaction by the direction of the net flow of
// funds.
type TxType string

const (
	// TxTypeSend ...
	TxTypeSend TxType = "send"
	// TxTypeReceive ...
	TxTypeReceive TxType = "receive"
)

// Transaction is one entry of the wallet history. A transaction moving funds
// between two addresses of the same wallet yields a send/receive pair with
// both entries flagged as self transfer.
type Transaction struct {
	TxID         string
	Type         TxType
	Amount       uint64
	Fee          uint64
	Timestamp    int64
	Height       int32
	Pending      bool
	SelfTransfer bool
}

// Key returns the identifier of the history entry. The type takes part in it
// so the rare transaction that genuinely pays the wallet while also spending
// from it keeps both of its entries.
func (t *Transaction) Key() string {
	return t.TxID + ":" + string(t.Type)
}

// Confirmed returns whether the transaction is included in a block.
func (t *Transaction) Confirmed() bool {
	return t.Height > 0
}

// Confirm records the inclusion of the transaction in a block.
func (t *Transaction) Confirm(height int32) {
	t.Height = height
	t.Pending = false
}
