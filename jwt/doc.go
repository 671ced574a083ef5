// Package jwt mints and parses the signed bearer tokens that represent a
// login session.
//
// Tokens carry a minimal identity claim set (subject id, email, given and
// family name) plus the registered issued-at/expiry claims. There is no
// revocation list; expiry is the only termination mechanism.
//
// # What this package must NOT do
//
//   - Carry credential material (passwords, PINs, codes) in claims.
//   - Import any other kidauth package.
package jwt
