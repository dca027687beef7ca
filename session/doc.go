// Package session owns the volatile cache tier of the session core: the
// per-user registry of active tokens, the session+user snapshot cached under
// each token, and a go-redis backed [Cache] implementation.
//
// # Cache layout
//
//	<token>                   -> JSON {"session":{...},"user":{...}}, TTL = time to session expiry
//	active-sessions-<userId>  -> JSON [{"token":"...","expiresAt":<unix ms>}, ...], TTL = time to furthest expiry
//
// The snapshot under a token is authoritative for request authentication. The
// registry is an index used only by bulk revocation; it is updated with an
// unlocked read-modify-write loop and may lose concurrent updates.
//
// # Architecture boundaries
//
// This package does NOT decide when sessions are created or revoked, and it
// never touches the durable store. Orchestration and store ordering belong to
// the flows driven by the Engine.
//
// # What this package must NOT do
//
//   - Import aegis or internal/flows (no upward imports).
//   - Treat a registry entry as proof that a session is valid.
//   - Write a key with a non-positive TTL.
package session
