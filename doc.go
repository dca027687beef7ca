// Package aegis provides an email/password authentication core with opaque,
// server-side sessions kept in a durable credential store and an optional
// volatile cache.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// aegis is the public surface. It exposes [Engine], [Builder], [Config] and
// value types (SessionData, MetricsSnapshot, SessionInfo). Flow
// orchestration and audit dispatch live under internal/. Leaf packages own
// one concern each: crypto (HKDF, AES-GCM, HMAC), store (bun records and
// migrations), session (cache registry and snapshots), password (hashers),
// cookie (transport cookies and the data envelope) and autherr (result
// codes).
//
// # Results
//
// Every operation returns a [Result]. Failures carry a stable code such as
// INVALID_EMAIL_OR_PASSWORD or SESSION_EXPIRED; internal faults are logged
// and surface as INTERNAL_ERROR with a generic message.
//
// # Tiers
//
// With Session.StoreSessionInDatabase the store is authoritative and the
// cache only accelerates lookups. Without it, and with a cache configured,
// sessions live only in the cache. An engine without a cache always uses
// the store.
package aegis
