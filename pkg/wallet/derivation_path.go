package wallet

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// DerivationPath is the internal representation of a hierarchical
// deterministic wallet account
type DerivationPath []uint32

// CoinType selects the derivation namespace of a wallet. Two namespaces are
// supported so that wallets created under the legacy numbering scheme remain
// importable.
type CoinType int

const (
	// CoinTypeStandard is the BIP44 coin type of the standard namespace.
	CoinTypeStandard CoinType = 145
	// CoinTypeLegacy is the coin type wallets were derived with before the
	// standard registration.
	CoinTypeLegacy CoinType = 0

	// ExternalChain is the receiving chain of an account.
	ExternalChain = 0
	// InternalChain is the change chain of an account.
	InternalChain = 1
)

var (
	// StandardBaseDerivationPath m/44'/145'
	StandardBaseDerivationPath = DerivationPath{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + uint32(CoinTypeStandard),
	}
	// LegacyBaseDerivationPath m/44'/0'
	LegacyBaseDerivationPath = DerivationPath{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + uint32(CoinTypeLegacy),
	}

	baseDerivationPathsByCoinType = map[CoinType]DerivationPath{
		CoinTypeStandard: StandardBaseDerivationPath,
		CoinTypeLegacy:   LegacyBaseDerivationPath,
	}
)

// ParseDerivationPath converts a derivation path string to the
// internal binary representation
func ParseDerivationPath(strPath string) (DerivationPath, error) {
	var path DerivationPath

	elems := strings.Split(strPath, "/")
	switch {
	case strPath == "":
		return nil, ErrNullDerivationPath

	case containsEmptyString(elems):
		return nil, ErrMalformedDerivationPath
	case len(elems) < 2:
		return nil, ErrMalformedDerivationPath

	case len(elems) > 1:
		if strings.TrimSpace(elems[0]) == "m" {
			elems = elems[1:]
		}

	default:
		return nil, ErrInvalidDerivationPath
	}

	// all remaining elems are relative, append one by one
	for _, elem := range elems {
		elem = strings.TrimSpace(elem)
		var value uint32

		if strings.HasSuffix(elem, "'") {
			value = hdkeychain.HardenedKeyStart
			elem = strings.TrimSpace(strings.TrimSuffix(elem, "'"))
		}

		// use big int for convertion
		bigval, ok := new(big.Int).SetString(elem, 0)
		if !ok {
			return nil, fmt.Errorf("invalid elem '%s' in path", elem)
		}

		max := math.MaxUint32 - value
		if bigval.Sign() < 0 || bigval.Cmp(big.NewInt(int64(max))) > 0 {
			if value == 0 {
				return nil, fmt.Errorf("elem %v must be in range [0, %d]", bigval, max)
			}
			return nil, fmt.Errorf("elem %v must be in hardened range [0, %d]", bigval, max)
		}
		value += uint32(bigval.Uint64())

		path = append(path, value)
	}

	return path, nil
}

// String converts a binary derivation path to its canonical representation
func (path DerivationPath) String() string {
	if len(path) <= 0 {
		return ""
	}

	result := "m"
	for _, component := range path {
		var hardened bool
		if component >= hdkeychain.HardenedKeyStart {
			component -= hdkeychain.HardenedKeyStart
			hardened = true
		}
		result = fmt.Sprintf("%s/%d", result, component)
		if hardened {
			result += "'"
		}
	}
	return result
}

// AddressDerivationPath returns the relative path "account'/chain/index" for
// the given chain role and address index. The returned path is meant to be
// appended to the wallet's base path m/44'/coinType'.
func AddressDerivationPath(chain, index int) string {
	return fmt.Sprintf("0'/%d/%d", chain, index)
}

func checkDerivationPath(path DerivationPath) error {
	if len(path) != 3 {
		return ErrInvalidDerivationPathLength
	}
	// first elem must be hardened!
	if path[0] < hdkeychain.HardenedKeyStart {
		return ErrInvalidDerivationPathAccount
	}
	// chain and index must stay in the non-hardened range
	if path[1] >= hdkeychain.HardenedKeyStart ||
		path[2] >= hdkeychain.HardenedKeyStart {
		return ErrOutOfRangeIndex
	}
	return nil
}

func containsEmptyString(composedPath []string) bool {
	for _, s := range composedPath {
		if s == "" {
			return true
		}
	}
	return false
}
