package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-encryption-key-32-characters"

func TestEncryptDecryptSecret(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		encoded, err := EncryptSecret("SuperSecret123!", testKey)
		require.NoError(t, err)
		assert.NotEqual(t, "SuperSecret123!", encoded)

		plaintext, err := DecryptSecret(encoded, testKey)
		require.NoError(t, err)
		assert.Equal(t, "SuperSecret123!", plaintext)
	})

	t.Run("empty plaintext round trips", func(t *testing.T) {
		encoded, err := EncryptSecret("", testKey)
		require.NoError(t, err)

		plaintext, err := DecryptSecret(encoded, testKey)
		require.NoError(t, err)
		assert.Equal(t, "", plaintext)
	})

	t.Run("nonce makes each ciphertext unique", func(t *testing.T) {
		first, err := EncryptSecret("same-input", testKey)
		require.NoError(t, err)
		second, err := EncryptSecret("same-input", testKey)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		_, err := EncryptSecret("secret", "")
		assert.Error(t, err)

		_, err = DecryptSecret("whatever", "")
		assert.Error(t, err)
	})
}

func TestDecryptSecretFailures(t *testing.T) {
	t.Run("wrong key fails authentication", func(t *testing.T) {
		encoded, err := EncryptSecret("SuperSecret123!", testKey)
		require.NoError(t, err)

		_, err = DecryptSecret(encoded, "another-key-entirely")
		assert.ErrorIs(t, err, ErrCiphertextInvalid)
	})

	t.Run("tampered ciphertext is rejected", func(t *testing.T) {
		encoded, err := EncryptSecret("SuperSecret123!", testKey)
		require.NoError(t, err)

		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xFF
		tampered := base64.StdEncoding.EncodeToString(raw)

		_, err = DecryptSecret(tampered, testKey)
		assert.ErrorIs(t, err, ErrCiphertextInvalid)
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := DecryptSecret("!!!not-base64!!!", testKey)
		assert.ErrorIs(t, err, ErrCiphertextInvalid)
	})

	t.Run("too short for a nonce", func(t *testing.T) {
		short := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02})
		_, err := DecryptSecret(short, testKey)
		assert.ErrorIs(t, err, ErrCiphertextInvalid)
	})
}
