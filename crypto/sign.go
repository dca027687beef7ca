package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// GenerateSignature returns base64url(HMAC-SHA256(secret, payload)) without padding.
func GenerateSignature(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Sign returns "value.signature".
func Sign(value, secret string) string {
	return value + "." + GenerateSignature(value, secret)
}

// VerifySignature recomputes the signature for payload and compares it to
// signature in constant time.
func VerifySignature(payload, signature, secret string) bool {
	expected := GenerateSignature(payload, secret)
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}

// Unsign splits a value produced by Sign at its last '.' and verifies it.
// It returns the original value and true only when the signature matches.
func Unsign(signed, secret string) (string, bool) {
	idx := strings.LastIndexByte(signed, '.')
	if idx <= 0 || idx >= len(signed)-1 {
		return "", false
	}

	value, signature := signed[:idx], signed[idx+1:]
	if !VerifySignature(value, signature, secret) {
		return "", false
	}
	return value, true
}
