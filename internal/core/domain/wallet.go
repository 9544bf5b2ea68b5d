package domain

// Chain discriminates the two address chains of a wallet account.
type Chain int

const (
	// ExternalChain holds the addresses handed out to receive funds.
	ExternalChain Chain = 0
	// InternalChain holds the change addresses, never shown to the user.
	InternalChain Chain = 1
)

// AddressInfo couples a derived address with everything the engine needs to
// watch and spend from it.
type AddressInfo struct {
	Address        string
	Script         []byte
	ScriptHash     string
	DerivationPath string
	Chain          Chain
	Index          int
}

// Wallet is the persisted state of a deterministic wallet: the encrypted
// seed, the derivation frontier of both chains and the map binding every
// derived script to its derivation path. The unencrypted signing material
// never reaches this type.
type Wallet struct {
	WalletID          string
	Name              string
	EncryptedMnemonic string
	// EncryptedSeedPassphrase holds the BIP39 seed passphrase, encrypted
	// under the unlocking passphrase. Empty when the seed carries none.
	EncryptedSeedPassphrase string
	PassphraseHash          []byte
	CoinType                int
	// SingleKey marks a wallet imported from a raw private key; such a
	// wallet owns exactly one address and EncryptedMnemonic holds its WIF.
	SingleKey              bool
	Birthday               int64
	LastExternalIndex      int
	LastInternalIndex      int
	DerivationPathByScript map[string]string
	Addresses              []AddressInfo
}

// NextIndex returns the index the next derived address of the given chain
// will take.
func (w *Wallet) NextIndex(chain Chain) int {
	if chain == InternalChain {
		return w.LastInternalIndex
	}
	return w.LastExternalIndex
}

// AddAddress records a newly derived address and advances the derivation
// frontier of its chain past its index.
func (w *Wallet) AddAddress(info AddressInfo) {
	if w.DerivationPathByScript == nil {
		w.DerivationPathByScript = make(map[string]string)
	}
	if _, ok := w.DerivationPathByScript[info.ScriptHash]; ok {
		return
	}
	w.DerivationPathByScript[info.ScriptHash] = info.DerivationPath
	w.Addresses = append(w.Addresses, info)

	if info.Chain == InternalChain {
		if info.Index >= w.LastInternalIndex {
			w.LastInternalIndex = info.Index + 1
		}
		return
	}
	if info.Index >= w.LastExternalIndex {
		w.LastExternalIndex = info.Index + 1
	}
}

// AddressByScriptHash returns the derived address watching the given script
// hash, if any.
func (w *Wallet) AddressByScriptHash(scriptHash string) (AddressInfo, bool) {
	for _, info := range w.Addresses {
		if info.ScriptHash == scriptHash {
			return info, true
		}
	}
	return AddressInfo{}, false
}

// AllAddresses returns every address derived so far, external and internal.
func (w *Wallet) AllAddresses() []AddressInfo {
	addresses := make([]AddressInfo, len(w.Addresses))
	copy(addresses, w.Addresses)
	return addresses
}

// ChainAddresses returns the addresses of one chain in derivation order.
func (w *Wallet) ChainAddresses(chain Chain) []AddressInfo {
	addresses := make([]AddressInfo, 0, len(w.Addresses))
	for _, info := range w.Addresses {
		if info.Chain == chain {
			addresses = append(addresses, info)
		}
	}
	return addresses
}

// DerivationPathOfScript returns the derivation path owning the given output
// script hash.
func (w *Wallet) DerivationPathOfScript(scriptHash string) (string, bool) {
	path, ok := w.DerivationPathByScript[scriptHash]
	return path, ok
}
