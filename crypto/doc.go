// Package crypto implements the primitives that make aegis tokens and cookies
// tamper-evident: AES-256-GCM sealing with an HKDF-derived key, HMAC-SHA256
// signatures, and alphabet-based random token generation.
//
// # Wire formats
//
// Sealed values are base64url (no padding) of nonce(12) || ciphertext || tag(16).
// Signed values are "value.signature" where signature is base64url (no padding)
// of HMAC-SHA256(secret, value).
//
// # Architecture boundaries
//
// This package is stateless. Every function takes the application secret
// explicitly, so any process holding the same secret derives the same key.
//
// # What this package must NOT do
//
//   - Return distinguishable errors from [Decrypt] or [VerifySignature].
//   - Compare signatures with non constant-time equality.
//   - Import any other aegis package.
package crypto
