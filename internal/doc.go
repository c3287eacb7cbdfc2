// Package internal holds helpers that are intentionally private to
// passgate.
//
// # Sub-packages
//
//   - backupcode - recovery code generation, canonicalization, and hashing
//   - rate - Redis-backed login attempt budgets
//
// # What this package must NOT do
//
//   - Export types that appear in the public passgate API.
//   - Be imported by any package outside the passgate module.
package internal
