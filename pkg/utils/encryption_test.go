package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestKey(t *testing.T) {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(key))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	setTestKey(t)

	plaintext := "emergency contact: +8801712000000"
	sealed, err := Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestEncryptEmptyStaysEmpty(t *testing.T) {
	setTestKey(t)

	sealed, err := Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", sealed)

	opened, err := Decrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", opened)
}

func TestEncryptNoncesDiffer(t *testing.T) {
	setTestKey(t)

	a, err := Encrypt("same secret")
	require.NoError(t, err)
	b, err := Encrypt("same secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "fresh nonce per call")
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	setTestKey(t)

	sealed, err := Encrypt("original")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	_, err = Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)
}

func TestEncryptionKeyValidation(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		t.Setenv("ENCRYPTION_KEY", "")
		_, err := Encrypt("anything")
		assert.Error(t, err)
	})

	t.Run("not base64", func(t *testing.T) {
		t.Setenv("ENCRYPTION_KEY", "!!! not base64 !!!")
		_, err := GetEncryptionKey()
		assert.Error(t, err)
	})

	t.Run("wrong length", func(t *testing.T) {
		t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("short")))
		_, err := GetEncryptionKey()
		assert.Error(t, err)
	})
}
