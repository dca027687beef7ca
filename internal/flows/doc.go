// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunSignUp, RunSignIn, RunCreateSession, etc.) accepts a
// typed dependency struct and returns an autherr.Result without side-effects
// beyond those dependencies. This keeps the Engine type thin and lets every
// ordering rule be tested with in-memory fakes.
//
// # Ordering rules
//
//   - CreateSession writes the durable store before any cache key.
//   - RevokeSession deletes the cached snapshot before the store record.
//   - Cache faults are logged and swallowed unless the cache is the only tier.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import aegis (to avoid import cycles).
//   - Return store or cache fault details to callers; they are logged only.
package flows
