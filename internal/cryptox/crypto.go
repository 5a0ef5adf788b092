// Package cryptox derives symmetric keys from an identity key and performs
// authenticated encryption of serialized record payloads.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/common"
)

const (
	// keySalt is a fixed application salt. Deliberately not per-user: the
	// same identity key must derive the same symmetric key on every device
	// without separate salt storage or sync.
	keySalt = "knowtation:reference:v1"

	kdfIterations = 100_000
	keySize       = 32
	nonceSize     = 12
)

// DeriveKey derives a 256-bit AES key from an opaque identity key string.
// The derivation is deterministic: the same input always yields the same key.
func DeriveKey(identityKey string) []byte {
	return pbkdf2.Key([]byte(identityKey), []byte(keySalt), kdfIterations, keySize, sha256.New)
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random 12-byte
// nonce and returns base64(nonce‖ciphertext) as a single opaque blob.
// A nonce is never reused with the same key.
func Encrypt(plaintext, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Any failure to authenticate —
// wrong key, corrupted blob, truncated nonce — yields
// common.ErrAuthenticationFailed; no partial plaintext is ever returned.
func Decrypt(blob string, key []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed blob", common.ErrAuthenticationFailed)
	}
	if len(raw) < nonceSize {
		return nil, fmt.Errorf("%w: blob too short", common.ErrAuthenticationFailed)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrAuthenticationFailed, err)
	}
	return plaintext, nil
}
