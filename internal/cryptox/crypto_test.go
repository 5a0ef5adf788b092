package cryptox

import (
	"errors"
	"testing"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/common"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	key1 := DeriveKey("npub1identity")
	key2 := DeriveKey("npub1identity")

	require.Equal(t, key1, key2)
	require.Len(t, key1, 32)
}

func TestDeriveKey_DifferentIdentities(t *testing.T) {
	key1 := DeriveKey("identity-a")
	key2 := DeriveKey("identity-b")

	require.NotEqual(t, key1, key2)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := DeriveKey("roundtrip")
	plaintext := []byte(`{"title":"A Study","notes":"do not leak"}`)

	blob, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	require.NotEmpty(t, blob)

	got, err := Decrypt(blob, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	key := DeriveKey("nonce-check")
	plaintext := []byte("same input")

	blob1, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	blob2, err := Encrypt(plaintext, key)
	require.NoError(t, err)

	require.NotEqual(t, blob1, blob2)
}

func TestDecrypt_WrongKeyFails(t *testing.T) {
	blob, err := Encrypt([]byte("secret"), DeriveKey("right key"))
	require.NoError(t, err)

	_, err = Decrypt(blob, DeriveKey("wrong key"))
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrAuthenticationFailed))
}

func TestDecrypt_MalformedBlobFails(t *testing.T) {
	key := DeriveKey("k")

	for _, blob := range []string{"", "AAAA", "%%% not base64 %%%"} {
		_, err := Decrypt(blob, key)
		require.Error(t, err)
		require.True(t, errors.Is(err, common.ErrAuthenticationFailed))
	}
}

func TestDecrypt_CorruptedBlobFails(t *testing.T) {
	key := DeriveKey("k")
	blob, err := Encrypt([]byte("payload"), key)
	require.NoError(t, err)

	// flip a character inside the base64 body
	b := []byte(blob)
	if b[10] == 'A' {
		b[10] = 'B'
	} else {
		b[10] = 'A'
	}

	_, err = Decrypt(string(b), key)
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrAuthenticationFailed))
}
