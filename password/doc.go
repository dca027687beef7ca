// Package password implements the pluggable password strategy: hashing,
// verification and an optional acceptance policy.
//
// # Output format
//
// The default [Argon2] hasher encodes hashes in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Bcrypt] produces standard $2a$ hashes. Both support NeedsUpgrade so a caller
// can rehash after a successful login when parameters have been raised.
//
// # Architecture boundaries
//
// This package owns hashing, verification and policy checks only. Length
// limits configured for sign-up are enforced by the flows before a policy runs.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other aegis package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
