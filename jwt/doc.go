// Package jwt issues and verifies the short-lived access tokens handed to
// forum clients.
//
// # Token shape
//
// Access tokens carry the user id as a decimal string in sub, iat, exp and a
// typ claim fixed to "access". They are never persisted and cannot be
// revoked; their lifetime bounds the damage of a leaked token.
//
// # Verification
//
// [Manager.ParseAccess] pins the configured algorithm, then checks claims
// against the manager's clock. Expiry is reported as [ErrExpired] only when
// every other check passed, so a tampered or malformed token can never be
// mistaken for one that merely aged out. All other failures are [ErrInvalid].
//
// # What this package must NOT do
//
//   - Mint or store refresh secrets (see package refresh).
//   - Look up users or decide whether an account is still active.
//   - Read configuration from the environment.
package jwt
