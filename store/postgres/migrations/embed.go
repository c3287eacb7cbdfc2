// Package migrations carries the embedded schema files for the Postgres
// store.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
