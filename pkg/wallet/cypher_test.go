package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	mnemonic := strings.Join(testMnemonic, " ")

	cypherText, err := Encrypt(EncryptOpts{
		PlainText:  mnemonic,
		Passphrase: "supersecret",
	})
	require.NoError(t, err)
	assert.NotEqual(t, mnemonic, cypherText)

	plainText, err := Decrypt(DecryptOpts{
		CypherText: cypherText,
		Passphrase: "supersecret",
	})
	require.NoError(t, err)
	assert.Equal(t, mnemonic, plainText)
}

func TestEncryptIsSalted(t *testing.T) {
	opts := EncryptOpts{
		PlainText:  "same plaintext",
		Passphrase: "same passphrase",
	}
	first, err := Encrypt(opts)
	require.NoError(t, err)
	second, err := Encrypt(opts)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestFailingDecrypt(t *testing.T) {
	cypherText, err := Encrypt(EncryptOpts{
		PlainText:  "something to protect",
		Passphrase: "right",
	})
	require.NoError(t, err)

	_, err = Decrypt(DecryptOpts{
		CypherText: cypherText,
		Passphrase: "wrong",
	})
	assert.Error(t, err)
}

func TestFailingEncryptDecryptOpts(t *testing.T) {
	_, err := Encrypt(EncryptOpts{Passphrase: "pass"})
	assert.Equal(t, ErrNullPlainText, err)

	_, err = Encrypt(EncryptOpts{PlainText: "text"})
	assert.Equal(t, ErrNullPassphrase, err)

	_, err = Decrypt(DecryptOpts{Passphrase: "pass"})
	assert.Equal(t, ErrNullCypherText, err)

	_, err = Decrypt(DecryptOpts{CypherText: "%%%", Passphrase: "pass"})
	assert.Equal(t, ErrInvalidCypherText, err)
}
