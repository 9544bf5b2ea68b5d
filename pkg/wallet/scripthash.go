package wallet

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// ScriptHash returns the protocol-level identifier of an output script: the
// sha256 digest of the script, byte-reversed, in hex. Indexing servers key
// balances, histories and subscriptions by this value so the address format
// never travels on the wire.
func ScriptHash(script []byte) (string, error) {
	if len(script) <= 0 {
		return "", ErrNullOutputScript
	}
	digest := sha256.Sum256(script)
	for i, j := 0, len(digest)-1; i < j; i, j = i+1, j-1 {
		digest[i], digest[j] = digest[j], digest[i]
	}
	return hex.EncodeToString(digest[:]), nil
}

// AddressToScriptHash decodes an address and returns the script hash of its
// output script.
func AddressToScriptHash(addr string, net *chaincfg.Params) (string, error) {
	if net == nil {
		return "", ErrNullNetwork
	}
	decoded, err := btcutil.DecodeAddress(addr, net)
	if err != nil {
		return "", err
	}
	script, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return "", err
	}
	return ScriptHash(script)
}
