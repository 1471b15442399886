// Package password verifies stored credential hashes for the login flow.
//
// Stored hashes come in two shapes. New hashes are Argon2id PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Rows migrated from the previous backend carry bcrypt hashes ($2a$, $2b$,
// $2y$). [Verifier] dispatches on the prefix and reports a plain match/no
// match; malformed hashes never match.
//
// [Verifier.DummyHash] gives callers a valid hash to verify against when the
// account does not exist, so both paths cost the same.
//
// # What this package must NOT do
//
//   - Store or look up users.
//   - Log plaintext passwords or hashes.
package password
