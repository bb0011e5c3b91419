// Package client contains the client-side building blocks that talk to the
// annotation server and open the local database.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface): existence
//     checks, binary upload, group and file metadata writes, file-to-group
//     linking, remote deletion and saved-group lookups.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) built on resty,
//     which maps transport failures and status codes to sentinel errors.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations,
//     NewRepositories) wiring an SQLite database and applying embedded goose
//     migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable (network failure, timeout, 5xx), ErrUnauthorized,
// ErrNotFound and ErrRejected (any other 4xx, with the server's detail text).
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation/timeouts.
package client
