package postgresrepo

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	const op = "postgresrepo.Store.Migrate"

	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
