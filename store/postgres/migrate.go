package postgres

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/agit8or1/passgate/store/postgres/migrations"
)

// Migrate brings the schema up to date using the embedded goose
// migrations. Safe to run on every startup; applied versions are skipped.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Files)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
