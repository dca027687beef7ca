// Package store owns the durable records (users, credential accounts,
// sessions) and a bun-backed implementation of the queries the engine needs.
//
// # Dialects
//
// [Open] selects the bun dialect from the driver name: "postgres" uses pgx
// through database/sql, "sqlite" uses sqliteshim (modernc or cgo sqlite,
// whichever is available). [Migrate] applies the embedded goose migrations.
//
// # What this package must NOT do
//
//   - Decide session validity; callers compare ExpiresAt against their clock.
//   - Hash or verify passwords.
//   - Import the root aegis package.
package store
