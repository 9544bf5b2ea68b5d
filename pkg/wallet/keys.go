package wallet

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// ExtendedKeyOpts is the struct given to
// ExtendedPrivateKey and ExtendedPublicKey methods
type ExtendedKeyOpts struct {
	Account uint32
}

func (o ExtendedKeyOpts) validate() error {
	if o.Account > MaxHardenedValue {
		return ErrOutOfRangeDerivationPathAccount
	}
	return nil
}

// ExtendedPrivateKey returns the signing extended private key in base58
// format for the provided account index
func (w *Wallet) ExtendedPrivateKey(opts ExtendedKeyOpts) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}
	if err := w.validate(); err != nil {
		return "", err
	}
	if w.singleKey != nil {
		return "", ErrSingleKeyWallet
	}

	xprv, err := w.accountKey(opts.Account)
	if err != nil {
		return "", err
	}
	return xprv.String(), nil
}

// ExtendedPublicKey returns the signing extended public key in base58 format
// for the provided account index
func (w *Wallet) ExtendedPublicKey(opts ExtendedKeyOpts) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}
	if err := w.validate(); err != nil {
		return "", err
	}
	if w.singleKey != nil {
		return "", ErrSingleKeyWallet
	}

	xprv, err := w.accountKey(opts.Account)
	if err != nil {
		return "", err
	}
	xpub, err := xprv.Neuter()
	if err != nil {
		return "", err
	}
	return xpub.String(), nil
}

// DeriveSigningKeyPairOpts is the struct given to DeriveSigningKeyPair method
type DeriveSigningKeyPairOpts struct {
	DerivationPath string
}

func (o DeriveSigningKeyPairOpts) validate() error {
	derivationPath, err := ParseDerivationPath(o.DerivationPath)
	if err != nil {
		return err
	}
	return checkDerivationPath(derivationPath)
}

// DeriveSigningKeyPair derives the key pair of the provided derivation path,
// relative to the wallet's base path. Derivation is pure: equal inputs always
// yield the identical key pair.
func (w *Wallet) DeriveSigningKeyPair(opts DeriveSigningKeyPairOpts) (
	*btcec.PrivateKey,
	*btcec.PublicKey,
	error,
) {
	if w.singleKey != nil {
		// a single-key wallet only owns the key it was imported with
		if opts.DerivationPath == SingleKeyPath {
			return w.singleKey, w.singleKey.PubKey(), nil
		}
		return nil, nil, ErrSingleKeyWallet
	}

	if err := opts.validate(); err != nil {
		return nil, nil, err
	}
	if err := w.validate(); err != nil {
		return nil, nil, err
	}

	hdNode, err := hdkeychain.NewKeyFromString(
		base58.Encode(w.masterKey),
	)
	if err != nil {
		return nil, nil, err
	}

	derivationPath, _ := ParseDerivationPath(opts.DerivationPath)
	for _, step := range derivationPath {
		hdNode, err = hdNode.Derive(step)
		if err != nil {
			return nil, nil, err
		}
	}

	privateKey, err := hdNode.ECPrivKey()
	if err != nil {
		return nil, nil, err
	}
	publicKey, err := hdNode.ECPubKey()
	if err != nil {
		return nil, nil, err
	}

	return privateKey, publicKey, nil
}

// SingleKeyPath is the conventional derivation path of the only key pair of
// a wallet imported from a raw private key.
const SingleKeyPath = "single"

// DeriveAddressOpts is the struct given to DeriveAddress method
type DeriveAddressOpts struct {
	DerivationPath string
	Network        *chaincfg.Params
}

func (o DeriveAddressOpts) validate() error {
	if o.Network == nil {
		return ErrNullNetwork
	}
	if o.DerivationPath == SingleKeyPath {
		return nil
	}
	derivationPath, err := ParseDerivationPath(o.DerivationPath)
	if err != nil {
		return err
	}
	return checkDerivationPath(derivationPath)
}

// DeriveAddress derives the signing pubkey of the provided path and returns
// the corresponding P2WPKH address along with its output script.
func (w *Wallet) DeriveAddress(opts DeriveAddressOpts) (string, []byte, error) {
	if err := opts.validate(); err != nil {
		return "", nil, err
	}
	if err := w.validate(); err != nil {
		return "", nil, err
	}

	_, pubkey, err := w.DeriveSigningKeyPair(DeriveSigningKeyPairOpts{
		DerivationPath: opts.DerivationPath,
	})
	if err != nil {
		return "", nil, err
	}

	p2wpkh, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(pubkey.SerializeCompressed()), opts.Network,
	)
	if err != nil {
		return "", nil, err
	}
	script, err := txscript.PayToAddrScript(p2wpkh)
	if err != nil {
		return "", nil, err
	}

	return p2wpkh.EncodeAddress(), script, nil
}

// ExportWIFOpts is the struct given to ExportWIF method
type ExportWIFOpts struct {
	DerivationPath string
	Network        *chaincfg.Params
}

func (o ExportWIFOpts) validate() error {
	if o.Network == nil {
		return ErrNullNetwork
	}
	if o.DerivationPath == SingleKeyPath {
		return nil
	}
	derivationPath, err := ParseDerivationPath(o.DerivationPath)
	if err != nil {
		return err
	}
	return checkDerivationPath(derivationPath)
}

// ExportWIF returns the single-line WIF encoding of the private key at the
// provided derivation path. It is consumed by the backup/export collaborator
// only, the engine never logs or persists it.
func (w *Wallet) ExportWIF(opts ExportWIFOpts) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}
	if err := w.validate(); err != nil {
		return "", err
	}

	prvkey, _, err := w.DeriveSigningKeyPair(DeriveSigningKeyPairOpts{
		DerivationPath: opts.DerivationPath,
	})
	if err != nil {
		return "", err
	}
	wif, err := btcutil.NewWIF(prvkey, opts.Network, true)
	if err != nil {
		return "", err
	}
	return wif.String(), nil
}

func (w *Wallet) accountKey(account uint32) (*hdkeychain.ExtendedKey, error) {
	masterKey, err := hdkeychain.NewKeyFromString(
		base58.Encode(w.masterKey),
	)
	if err != nil {
		return nil, err
	}
	return masterKey.Derive(hdkeychain.HardenedKeyStart + account)
}
