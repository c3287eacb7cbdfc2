// Package passgate provides a credential-to-session authentication engine:
// argon2id password verification, RFC 6238 TOTP second factors with
// single-use backup codes, and stateless HS256 session tokens.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// passgate is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, TOTPSetup, MetricsSnapshot). Recovery code
// minting and login throttling live under internal/ and are never exported;
// password hashing and token handling sit in their own leaf packages so
// they can be reused without dragging in the engine.
//
// # What this package must NOT do
//
//   - Persist anything itself. All account state flows through the
//     [AccountStore] the caller injects.
//   - Hold login state between requests. A two-factor login repeats the
//     full credential check on its second pass.
//   - Log passwords, TOTP secrets, or submitted codes, at any level.
//
// # Performance contract
//
// ValidateToken is the hot path. It verifies signature and claims in
// process, without touching the store or Redis, and allocates only the
// returned claims. Login is allowed one store lookup, one argon2id
// verification, and the Redis round-trips of the throttle.
package passgate
