// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Parameters travel inside the hash, so records written under older settings
// keep verifying after the configured work factor is raised. [Hasher.NeedsRehash]
// reports when a stored hash is weaker than the current configuration; the
// engine re-hashes on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length for new passwords, reuse rules) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other passgate package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
