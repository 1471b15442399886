// Package refresh owns the opaque refresh secrets and the stores that hold
// their hashed records.
//
// # Secret format
//
// A refresh secret is 64 bytes from crypto/rand, base64url encoded without
// padding. Only [HashSecret] output (hex SHA-256) ever reaches a store, so a
// leaked table or keyspace cannot be replayed against the refresh endpoint.
//
// # Store contract
//
// [Store.Rotate] is the only mutation on the refresh path. It deletes the old
// record and inserts the new one as a single unit: when the old record is
// absent, expired, or owned by another user, state is left unchanged and
// [ErrNotFound] is returned. Two concurrent rotations of the same secret have
// exactly one winner.
//
// Expiry is enforced on every read ([Store.Lookup], [Store.Rotate]) and
// independently by [Store.SweepExpired]. Correctness never depends on the
// sweep having run.
//
// # Backends
//
//   - [RedisStore]: one hash per record, a per-user index set and an expiry
//     sorted set, mutated by Lua scripts.
//   - [PostgresStore]: a refresh_tokens table, rotated inside a transaction.
//
// # What this package must NOT do
//
//   - Sign or verify access tokens.
//   - Decide what a failed rotation means for the client.
//   - Log. Callers own logging and audit.
package refresh
