package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDerivationPath(t *testing.T) {
	tests := []struct {
		path     string
		expected DerivationPath
	}{
		{"0'/0/0", DerivationPath{hardened(0), 0, 0}},
		{"0'/1/42", DerivationPath{hardened(0), 1, 42}},
		{"m/44'/145'", DerivationPath{hardened(44), hardened(145)}},
		{"m/44'/0'/0'", DerivationPath{hardened(44), hardened(0), hardened(0)}},
	}
	for _, tt := range tests {
		parsed, err := ParseDerivationPath(tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, parsed)
	}
}

func TestFailingParseDerivationPath(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"single elem", "0"},
		{"trailing slash", "0'/0/0/"},
		{"leading slash", "/0'/0/0"},
		{"empty elem", "0'//0"},
		{"not a number", "0'/x/0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDerivationPath(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestDerivationPathString(t *testing.T) {
	tests := []string{"m/44'/145'", "m/0'/0/0", "m/0'/1/42"}
	for _, tt := range tests {
		parsed, err := ParseDerivationPath(tt)
		require.NoError(t, err)
		assert.Equal(t, tt, parsed.String())
	}
}

func TestAddressDerivationPath(t *testing.T) {
	assert.Equal(t, "0'/0/0", AddressDerivationPath(ExternalChain, 0))
	assert.Equal(t, "0'/1/7", AddressDerivationPath(InternalChain, 7))
}

func TestCheckDerivationPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		err  error
	}{
		{"valid external", "0'/0/0", nil},
		{"valid internal", "0'/1/10", nil},
		{"too short", "0'/0", ErrInvalidDerivationPathLength},
		{"account not hardened", "0/0/0", ErrInvalidDerivationPathAccount},
		{"hardened chain", "0'/1'/0", ErrOutOfRangeIndex},
		{"hardened index", "0'/0/1'", ErrOutOfRangeIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseDerivationPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.err, checkDerivationPath(parsed))
		})
	}
}

func hardened(i uint32) uint32 {
	return i + MaxHardenedValue + 1
}
