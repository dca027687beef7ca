package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	keyInfo   = "aegis.session-envelope.v1"
	keySize   = 32
	nonceSize = 12
	tagSize   = 16

	// MinSealedSize is the smallest decoded payload Decrypt will consider.
	MinSealedSize = nonceSize + tagSize
)

// DeriveKey expands secret into a 32-byte AES-256 key with HKDF-SHA256.
// The derivation is deterministic for a given secret.
func DeriveKey(secret string) []byte {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails past 255*hash.Size bytes of output.
		panic(fmt.Sprintf("aegis/crypto: hkdf expand: %v", err))
	}
	return key
}

// Encrypt seals plaintext with AES-256-GCM under a key derived from secret.
// A fresh random nonce is drawn on every call, so equal inputs never produce
// equal outputs.
func Encrypt(plaintext, secret string) (string, error) {
	aead, err := newGCM(secret)
	if err != nil {
		return "", err
	}

	out := make([]byte, nonceSize, nonceSize+len(plaintext)+tagSize)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return "", fmt.Errorf("aegis/crypto: nonce: %w", err)
	}

	// Seal appends ciphertext||tag after the nonce prefix.
	out = aead.Seal(out, out[:nonceSize], []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decrypt opens a value produced by Encrypt. Every failure (bad encoding,
// short payload, wrong key, tampering) reports ok=false and nothing else.
func Decrypt(token, secret string) (plaintext string, ok bool) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(data) < MinSealedSize {
		return "", false
	}

	aead, err := newGCM(secret)
	if err != nil {
		return "", false
	}

	out, err := aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func newGCM(secret string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveKey(secret))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}
