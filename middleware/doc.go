// Package middleware adapts aegis.Engine session resolution to net/http.
//
// # Handlers
//
//   - [Authenticate] attaches the session when one is present and valid.
//   - [RequireSession] rejects requests without a valid session.
//   - [WriteError] renders an autherr.Error with its mapped status.
//
// Both handlers read the signed session cookie, falling back to a bearer
// header that carries the same signed value, and call
// Engine.AuthenticateCookie. They also record the peer address and
// User-Agent with aegis.WithClientIP and aegis.WithUserAgent.
//
// This package does not verify signatures or touch the cache and store
// itself; every decision is delegated to the Engine.
package middleware
