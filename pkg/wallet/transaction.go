package wallet

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// TxInput references the unspent output funding a transaction input, bound
// to the derivation path of the key that owns it.
type TxInput struct {
	TxID           string
	VOut           uint32
	Value          uint64
	Script         []byte
	DerivationPath string
}

// TxOutput is a requested payment: address and amount in satoshis.
type TxOutput struct {
	Address string
	Value   uint64
}

// UnsignedTransaction is a fully composed, not yet signed transaction. It is
// never broadcastable; only the SignedTransaction produced by
// Wallet.SignTransaction may reach the protocol layer.
type UnsignedTransaction struct {
	tx          *wire.MsgTx
	inputs      []TxInput
	fee         uint64
	changeIndex int
}

// Fee returns the fee committed into the transaction, including any dust
// change folded into it.
func (u *UnsignedTransaction) Fee() uint64 { return u.fee }

// Inputs returns the funding inputs of the transaction.
func (u *UnsignedTransaction) Inputs() []TxInput { return u.inputs }

// HasChange returns whether a change output was added.
func (u *UnsignedTransaction) HasChange() bool { return u.changeIndex >= 0 }

// NewUnsignedTransactionOpts is the struct given to NewUnsignedTransaction.
type NewUnsignedTransactionOpts struct {
	Inputs        []TxInput
	Outputs       []TxOutput
	ChangeAddress string
	ChangeAmount  uint64
	FeeAmount     uint64
	// SubtractFeeFromOutput deducts the fee from the single requested
	// output instead of adding it on top, so the sender's total outflow
	// equals exactly the requested amount.
	SubtractFeeFromOutput bool
	DustThreshold         uint64
	Network               *chaincfg.Params
}

func (o NewUnsignedTransactionOpts) validate() error {
	if len(o.Inputs) <= 0 {
		return ErrEmptyInputs
	}
	if len(o.Outputs) <= 0 {
		return ErrEmptyOutputs
	}
	if o.Network == nil {
		return ErrNullNetwork
	}
	for _, in := range o.Inputs {
		if in.Value == 0 {
			return ErrZeroInputValue
		}
		if len(in.Script) <= 0 {
			return ErrNullOutputScript
		}
		if _, err := chainhash.NewHashFromStr(in.TxID); err != nil {
			return err
		}
	}
	for _, out := range o.Outputs {
		if out.Value == 0 {
			return ErrZeroOutputValue
		}
		if _, err := btcutil.DecodeAddress(out.Address, o.Network); err != nil {
			return err
		}
	}
	if o.SubtractFeeFromOutput {
		if len(o.Outputs) != 1 {
			return ErrEmptyOutputs
		}
		if o.Outputs[0].Value <= o.FeeAmount {
			return ErrZeroOutputValue
		}
	}
	if o.ChangeAmount > 0 && len(o.ChangeAddress) <= 0 {
		return ErrNullOutputScript
	}
	return nil
}

// NewUnsignedTransaction composes selected coins, requested outputs, fee and
// eventual change into an unsigned transaction. A requested output left below
// the dust threshold, after any fee deduction, is rejected with
// ErrDustOutput. Change below the dust threshold is not added as a near-zero
// output, it is folded into the fee.
// The composed transaction always satisfies
// sum(inputs) = sum(outputs) + fee exactly.
func NewUnsignedTransaction(opts NewUnsignedTransactionOpts) (*UnsignedTransaction, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	fee := opts.FeeAmount
	change := opts.ChangeAmount

	outValues := make([]uint64, len(opts.Outputs))
	for i, out := range opts.Outputs {
		outValues[i] = out.Value
	}
	if opts.SubtractFeeFromOutput {
		outValues[0] -= fee
	}
	for _, v := range outValues {
		if v < opts.DustThreshold {
			return nil, ErrDustOutput
		}
	}

	changeIndex := -1
	if change > 0 && change < opts.DustThreshold {
		fee += change
		change = 0
	}

	// balance check before assembling anything
	totalIn := uint64(0)
	for _, in := range opts.Inputs {
		totalIn += in.Value
	}
	totalOut := change + fee
	for _, v := range outValues {
		totalOut += v
	}
	if totalIn != totalOut {
		return nil, ErrUnbalancedTransaction
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	for _, in := range opts.Inputs {
		hash, _ := chainhash.NewHashFromStr(in.TxID)
		outpoint := wire.NewOutPoint(hash, in.VOut)
		tx.AddTxIn(wire.NewTxIn(outpoint, nil, nil))
	}
	for i, out := range opts.Outputs {
		script, err := outputScript(out.Address, opts.Network)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(outValues[i]), script))
	}
	if change > 0 {
		script, err := outputScript(opts.ChangeAddress, opts.Network)
		if err != nil {
			return nil, err
		}
		changeIndex = len(tx.TxOut)
		tx.AddTxOut(wire.NewTxOut(int64(change), script))
	}

	inputs := make([]TxInput, len(opts.Inputs))
	copy(inputs, opts.Inputs)

	return &UnsignedTransaction{
		tx:          tx,
		inputs:      inputs,
		fee:         fee,
		changeIndex: changeIndex,
	}, nil
}

func outputScript(addr string, net *chaincfg.Params) ([]byte, error) {
	decoded, err := btcutil.DecodeAddress(addr, net)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(decoded)
}
