package wallet

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptHash(t *testing.T) {
	wallet, err := newTestWallet()
	require.NoError(t, err)

	addr, script, err := wallet.DeriveAddress(DeriveAddressOpts{
		DerivationPath: AddressDerivationPath(ExternalChain, 0),
		Network:        &chaincfg.RegressionNetParams,
	})
	require.NoError(t, err)

	fromScript, err := ScriptHash(script)
	require.NoError(t, err)
	fromAddress, err := AddressToScriptHash(
		addr, &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)

	assert.Equal(t, fromScript, fromAddress)
	assert.Len(t, fromScript, 64)
	_, err = hex.DecodeString(fromScript)
	assert.NoError(t, err)
}

func TestFailingScriptHash(t *testing.T) {
	_, err := ScriptHash(nil)
	assert.Equal(t, ErrNullOutputScript, err)

	_, err = AddressToScriptHash("notanaddress", &chaincfg.MainNetParams)
	assert.Error(t, err)
}
