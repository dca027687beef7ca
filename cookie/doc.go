// Package cookie carries aegis sessions over HTTP cookies.
//
// The session token travels as "token.signature" in an HttpOnly cookie.
// An optional data envelope holds a signed copy of the session and user,
// either readable (Compact) or sealed (Encrypted). Sign-out clears every
// cookie this package writes.
//
// The envelope is produced and verifiable, but request authentication
// resolves sessions from the cache and store by token. A valid envelope
// never grants access by itself.
package cookie
