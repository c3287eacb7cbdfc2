// Package middleware gates HTTP requests on a valid session token issued by
// the passgate engine.
//
// # Guards
//
//   - [Guard] - configurable via [Options].
//   - [Require] - any authenticated session.
//   - [RequireElevated] - authenticated session with the elevated role.
//
// Each guard pulls the token from the Authorization header (with a query
// parameter fallback for header-less clients), validates it through
// Engine.ValidateToken, and stores the resulting claims in the request
// context for [ClaimsFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into engine calls. It never parses
// tokens itself and never makes an authorization decision beyond the role
// check the caller asked for.
package middleware
