package wallet

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// SignedTransaction is a finalized, immutable transaction ready for
// broadcast.
type SignedTransaction struct {
	hex  string
	txID string
}

// Hex returns the serialized transaction in hex format.
func (s *SignedTransaction) Hex() string { return s.hex }

// TxID returns the transaction id.
func (s *SignedTransaction) TxID() string { return s.txID }

// SignTransactionOpts is the struct given to SignTransaction method
type SignTransactionOpts struct {
	Unsigned *UnsignedTransaction
	Network  *chaincfg.Params
}

func (o SignTransactionOpts) validate() error {
	if o.Unsigned == nil || len(o.Unsigned.inputs) <= 0 {
		return ErrEmptyInputs
	}
	if o.Network == nil {
		return ErrNullNetwork
	}
	for _, in := range o.Unsigned.inputs {
		if len(in.DerivationPath) <= 0 {
			return ErrSigningKeyUnavailable
		}
	}
	return nil
}

// SignTransaction signs every input of the unsigned transaction by deriving
// the owning key pair from the input's recorded derivation path. It fails
// with ErrSigningKeyUnavailable if the key derived for an input does not
// reproduce the input's output script, which would mean the coin belongs to
// another wallet.
func (w *Wallet) SignTransaction(opts SignTransactionOpts) (*SignedTransaction, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := w.validate(); err != nil {
		return nil, err
	}

	unsigned := opts.Unsigned
	tx := unsigned.tx.Copy()

	prevOuts := make(map[wire.OutPoint]*wire.TxOut)
	for _, in := range unsigned.inputs {
		hash, _ := chainhash.NewHashFromStr(in.TxID)
		prevOuts[*wire.NewOutPoint(hash, in.VOut)] = wire.NewTxOut(
			int64(in.Value), in.Script,
		)
	}
	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i, in := range unsigned.inputs {
		if err := w.signInput(tx, sigHashes, i, in, opts.Network); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}

	return &SignedTransaction{
		hex:  hex.EncodeToString(buf.Bytes()),
		txID: tx.TxHash().String(),
	}, nil
}

func (w *Wallet) signInput(
	tx *wire.MsgTx, sigHashes *txscript.TxSigHashes,
	inIndex int, in TxInput, net *chaincfg.Params,
) error {
	prvkey, pubkey, err := w.DeriveSigningKeyPair(DeriveSigningKeyPairOpts{
		DerivationPath: in.DerivationPath,
	})
	if err != nil {
		return err
	}

	// the derived key must reproduce the input's script, otherwise the
	// coin is not ours to spend
	p2wpkh, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(pubkey.SerializeCompressed()), net,
	)
	if err != nil {
		return err
	}
	expectedScript, err := txscript.PayToAddrScript(p2wpkh)
	if err != nil {
		return err
	}
	if !bytes.Equal(expectedScript, in.Script) {
		return ErrSigningKeyUnavailable
	}

	witness, err := txscript.WitnessSignature(
		tx, sigHashes, inIndex, int64(in.Value), in.Script,
		txscript.SigHashAll, prvkey, true,
	)
	if err != nil {
		return err
	}
	tx.TxIn[inIndex].Witness = witness
	return nil
}
