// Package password implements password hashing and verification.
//
// # Output formats
//
// [Argon2] encodes hashes in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Bcrypt] uses the standard modular crypt format ($2a$, $2b$, $2y$).
//
// [Manager] hashes with one primary algorithm and verifies any format it knows, so
// [Manager.NeedsUpgrade] returns true for hashes that should be rewritten on the next
// successful login. [Pool] bounds concurrent work with a weighted semaphore.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Log plaintext passwords or hash parameters at runtime.
package password
