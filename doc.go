// Package kidauth provides the credential verification and session-issuance
// engine for a family video platform: password + SMS one-time-code login,
// email verification for new accounts, federated identity sign-in, and the
// PIN gates protecting child profiles and parental controls.
//
// The package is transport-agnostic. Engine methods are safe to call from
// multiple goroutines after initialization through [Builder.Build]; HTTP
// routing, persistence, and message delivery are supplied by the caller
// through the [AccountProvider], [ProfileProvider], [MailSender],
// [SMSSender], and [IdentityVerifier] interfaces.
//
// # Architecture boundaries
//
// kidauth is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy in errors.go, and value types. Rate limiting and random
// secret generation live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Echo a password, PIN, one-time code, or digest back to the caller.
//   - Perform delivery I/O while holding a code-store lock.
//   - Read configuration from ambient process state inside business logic.
package kidauth
