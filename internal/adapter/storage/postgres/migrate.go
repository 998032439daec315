package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schema string

// Migrate applies the ledger schema. Every statement is IF NOT EXISTS, so it
// is safe to run on each start.
func Migrate(ctx context.Context, pool Pool, log zerolog.Logger) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply ledger schema: %w", err)
	}
	log.Info().Msg("Ledger schema applied")
	return nil
}
