// Package rate provides the Redis-backed counters behind login throttling.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - al:  login per-user
//   - ali: login per-IP
//
// # What this package must NOT do
//
//   - Decide which outcomes count as failures (the engine does).
//   - Be imported outside this module.
package rate
