// Package password implements secret hashing and verification with Argon2id.
//
// The same hasher covers account passwords, account PINs, and restricted
// profile PINs; all three are independent secrets with independent digests.
//
// # Output format
//
// Digests are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// A malformed or foreign digest verifies as a non-match, never as a panic or
// a bypass. [Argon2.NeedsUpgrade] reports stored digests produced with
// weaker parameters so the caller can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Secret policy (password
// length, PIN shape) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve secrets — callers supply plaintext and receive digests.
//   - Import any other kidauth package.
//   - Log plaintext secrets or digests at runtime.
package password
