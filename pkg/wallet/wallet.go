package wallet

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

var (
	// ErrNullNetwork ...
	ErrNullNetwork = errors.New("network params are null")
	// ErrNullMnemonic ...
	ErrNullMnemonic = errors.New("mnemonic is null")
	// ErrNullMasterKey ...
	ErrNullMasterKey = errors.New("signing master key is null")
	// ErrNullPassphrase ...
	ErrNullPassphrase = errors.New("passphrase must not be null")
	// ErrNullPlainText ...
	ErrNullPlainText = errors.New("text to encrypt must not be null")
	// ErrNullCypherText ...
	ErrNullCypherText = errors.New("cypher to decrypt must not be null")
	// ErrNullDerivationPath ...
	ErrNullDerivationPath = errors.New("derivation path must not be null")
	// ErrNullOutputScript ...
	ErrNullOutputScript = errors.New("output script must not be null")
	// ErrNullWIF ...
	ErrNullWIF = errors.New("private key WIF must not be null")

	// ErrInvalidMnemonic signals a mnemonic whose checksum does not verify.
	ErrInvalidMnemonic = errors.New("mnemonic is invalid")
	// ErrInvalidEntropySize ...
	ErrInvalidEntropySize = errors.New(
		"entropy size must be a multiple of 32 in the range [128,256]",
	)
	// ErrInvalidCypherText ...
	ErrInvalidCypherText = errors.New("cypher must be in base64 format")
	// ErrInvalidDerivationPath ...
	ErrInvalidDerivationPath = errors.New("invalid derivation path")
	// ErrInvalidDerivationPathLength ...
	ErrInvalidDerivationPathLength = errors.New(
		"derivation path must be a relative path in the form \"account'/chain/index\"",
	)
	// ErrInvalidDerivationPathAccount ...
	ErrInvalidDerivationPathAccount = errors.New(
		"derivation path's account (first elem) must be hardened (suffix \"'\")",
	)
	// ErrInvalidCoinType ...
	ErrInvalidCoinType = errors.New(
		"coin type must be one of the supported namespaces (standard, legacy)",
	)
	// ErrMalformedDerivationPath ...
	ErrMalformedDerivationPath = errors.New(
		"path must not start or end with a '/' and " +
			"can optionally start with 'm/' for absolute paths",
	)
	// ErrOutOfRangeDerivationPathAccount ...
	ErrOutOfRangeDerivationPathAccount = errors.New(
		"account index must be in hardened range",
	)
	// ErrOutOfRangeIndex signals an address index beyond the BIP32
	// non-hardened boundary.
	ErrOutOfRangeIndex = errors.New("address index is out of range")

	// ErrEmptyInputs ...
	ErrEmptyInputs = errors.New("input list must not be empty")
	// ErrEmptyOutputs ...
	ErrEmptyOutputs = errors.New("output list must not be empty")
	// ErrZeroInputValue ...
	ErrZeroInputValue = errors.New("input value must not be zero")
	// ErrZeroOutputValue ...
	ErrZeroOutputValue = errors.New("output value must not be zero")
	// ErrDustOutput is returned when a requested output, after any fee
	// deduction, falls below the dust threshold.
	ErrDustOutput = errors.New("output value is below the dust threshold")

	// ErrSingleKeyWallet is returned when deriving any index other than
	// external 0 on a wallet imported from a raw private key.
	ErrSingleKeyWallet = errors.New(
		"wallet holds a single raw private key and cannot derive further keys",
	)
	// ErrSigningKeyUnavailable is returned when a transaction input cannot
	// be traced back to a key owned by the wallet.
	ErrSigningKeyUnavailable = errors.New(
		"signing key for input is not owned by the wallet",
	)
	// ErrUnbalancedTransaction is returned when the sum of inputs does not
	// equal outputs plus fee.
	ErrUnbalancedTransaction = errors.New(
		"sum of inputs must equal sum of outputs plus fee",
	)
)

// Wallet lets to restore an HD wallet from a mnemonic (with optional BIP39
// passphrase) or from a single raw private key, derive per-address key pairs
// and sign transaction inputs with them.
type Wallet struct {
	mnemonic           []string
	passphrase         string
	masterKey          []byte
	baseDerivationPath DerivationPath
	singleKey          *btcec.PrivateKey
}

// NewWalletFromMnemonicOpts is the struct given to NewWalletFromMnemonic.
type NewWalletFromMnemonicOpts struct {
	Mnemonic   []string
	Passphrase string
	CoinType   CoinType
}

func (o NewWalletFromMnemonicOpts) validate() error {
	if len(o.Mnemonic) <= 0 {
		return ErrNullMnemonic
	}
	if !isMnemonicValid(o.Mnemonic) {
		return ErrInvalidMnemonic
	}
	if _, ok := baseDerivationPathsByCoinType[o.CoinType]; !ok {
		return ErrInvalidCoinType
	}
	return nil
}

// NewWalletFromMnemonic generates the signing master key from the provided
// mnemonic, optional passphrase and coin type namespace. The namespace is
// always chosen explicitly by the caller, never guessed.
func NewWalletFromMnemonic(opts NewWalletFromMnemonicOpts) (*Wallet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	basePath := baseDerivationPathsByCoinType[opts.CoinType]
	seed := generateSeedFromMnemonic(opts.Mnemonic, opts.Passphrase)
	masterKey, err := generateSigningMasterKey(seed, basePath)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		mnemonic:           opts.Mnemonic,
		passphrase:         opts.Passphrase,
		masterKey:          masterKey,
		baseDerivationPath: basePath,
	}, nil
}

// NewWalletFromWIFOpts is the struct given to NewWalletFromWIF.
type NewWalletFromWIFOpts struct {
	WIF string
}

func (o NewWalletFromWIFOpts) validate() error {
	if len(o.WIF) <= 0 {
		return ErrNullWIF
	}
	return nil
}

// NewWalletFromWIF restores a single-key wallet from a WIF encoded private
// key. Such a wallet owns exactly one address and cannot derive children.
func NewWalletFromWIF(opts NewWalletFromWIFOpts) (*Wallet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	wif, err := btcutil.DecodeWIF(opts.WIF)
	if err != nil {
		return nil, err
	}
	return &Wallet{singleKey: wif.PrivKey}, nil
}

func (w *Wallet) validate() error {
	if w.singleKey != nil {
		return nil
	}
	if len(w.masterKey) <= 0 {
		return ErrNullMasterKey
	}
	if len(w.mnemonic) <= 0 {
		return ErrNullMnemonic
	}
	if !isMnemonicValid(w.mnemonic) {
		return ErrInvalidMnemonic
	}
	return nil
}

// Mnemonic is the getter for the wallet's mnemonic.
func (w *Wallet) Mnemonic() ([]string, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	if w.singleKey != nil {
		return nil, ErrSingleKeyWallet
	}
	return w.mnemonic, nil
}

// IsSingleKey returns whether the wallet was imported from a raw private key
// instead of seed material.
func (w *Wallet) IsSingleKey() bool {
	return w.singleKey != nil
}
