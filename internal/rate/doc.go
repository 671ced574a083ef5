// Package rate provides the Redis-backed fixed-window counters behind the
// optional login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key
// prefixes:
//   - kl:  — login per-email
//   - kli: — login per-IP
//
// # What this package must NOT do
//
//   - Implement domain policy (which operations are throttled is decided by
//     the engine).
//   - Be imported outside the kidauth module.
package rate
