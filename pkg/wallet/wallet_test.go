package wallet

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMnemonic = strings.Split(
	"abandon abandon abandon abandon abandon abandon "+
		"abandon abandon abandon abandon abandon about",
	" ",
)

func newTestWallet() (*Wallet, error) {
	return NewWalletFromMnemonic(NewWalletFromMnemonicOpts{
		Mnemonic: testMnemonic,
		CoinType: CoinTypeStandard,
	})
}

func TestNewWalletFromMnemonic(t *testing.T) {
	wallet, err := newTestWallet()
	require.NoError(t, err)

	mnemonic, err := wallet.Mnemonic()
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, mnemonic)
	assert.False(t, wallet.IsSingleKey())
}

func TestFailingNewWalletFromMnemonic(t *testing.T) {
	tests := []struct {
		name string
		opts NewWalletFromMnemonicOpts
		err  error
	}{
		{
			name: "null mnemonic",
			opts: NewWalletFromMnemonicOpts{CoinType: CoinTypeStandard},
			err:  ErrNullMnemonic,
		},
		{
			name: "invalid mnemonic",
			opts: NewWalletFromMnemonicOpts{
				Mnemonic: []string{"not", "a", "valid", "mnemonic"},
				CoinType: CoinTypeStandard,
			},
			err: ErrInvalidMnemonic,
		},
		{
			name: "invalid coin type",
			opts: NewWalletFromMnemonicOpts{
				Mnemonic: testMnemonic,
				CoinType: CoinType(42),
			},
			err: ErrInvalidCoinType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWalletFromMnemonic(tt.opts)
			assert.Equal(t, tt.err, err)
		})
	}
}

func TestFailingNewMnemonic(t *testing.T) {
	tests := []int{-1, 127, 130, 257}
	for _, tt := range tests {
		_, err := NewMnemonic(NewMnemonicOpts{EntropySize: tt})
		assert.Equal(t, ErrInvalidEntropySize, err)
	}
}

func TestDeriveAddressIsDeterministic(t *testing.T) {
	walletA, err := newTestWallet()
	require.NoError(t, err)
	walletB, err := newTestWallet()
	require.NoError(t, err)

	opts := DeriveAddressOpts{
		DerivationPath: AddressDerivationPath(ExternalChain, 0),
		Network:        &chaincfg.RegressionNetParams,
	}
	addrA, scriptA, err := walletA.DeriveAddress(opts)
	require.NoError(t, err)
	addrB, scriptB, err := walletB.DeriveAddress(opts)
	require.NoError(t, err)

	assert.Equal(t, addrA, addrB)
	assert.Equal(t, scriptA, scriptB)
	assert.True(t, strings.HasPrefix(addrA, "bcrt1"))
}

func TestDeriveAddressPerIndexAndChain(t *testing.T) {
	wallet, err := newTestWallet()
	require.NoError(t, err)

	seen := map[string]struct{}{}
	for _, chain := range []int{ExternalChain, InternalChain} {
		for index := 0; index < 5; index++ {
			addr, _, err := wallet.DeriveAddress(DeriveAddressOpts{
				DerivationPath: AddressDerivationPath(chain, index),
				Network:        &chaincfg.RegressionNetParams,
			})
			require.NoError(t, err)
			_, dup := seen[addr]
			assert.False(t, dup)
			seen[addr] = struct{}{}
		}
	}
}

func TestCoinTypeNamespacesDiverge(t *testing.T) {
	standard, err := NewWalletFromMnemonic(NewWalletFromMnemonicOpts{
		Mnemonic: testMnemonic,
		CoinType: CoinTypeStandard,
	})
	require.NoError(t, err)
	legacy, err := NewWalletFromMnemonic(NewWalletFromMnemonicOpts{
		Mnemonic: testMnemonic,
		CoinType: CoinTypeLegacy,
	})
	require.NoError(t, err)

	opts := DeriveAddressOpts{
		DerivationPath: AddressDerivationPath(ExternalChain, 0),
		Network:        &chaincfg.RegressionNetParams,
	}
	addrStandard, _, err := standard.DeriveAddress(opts)
	require.NoError(t, err)
	addrLegacy, _, err := legacy.DeriveAddress(opts)
	require.NoError(t, err)

	assert.NotEqual(t, addrStandard, addrLegacy)
}

func TestDeriveSigningKeyPair(t *testing.T) {
	wallet, err := newTestWallet()
	require.NoError(t, err)

	prvkey, pubkey, err := wallet.DeriveSigningKeyPair(DeriveSigningKeyPairOpts{
		DerivationPath: AddressDerivationPath(ExternalChain, 0),
	})
	require.NoError(t, err)
	assert.NotNil(t, prvkey)
	assert.NotNil(t, pubkey)
	assert.Equal(t, pubkey.SerializeCompressed(), prvkey.PubKey().SerializeCompressed())
}
