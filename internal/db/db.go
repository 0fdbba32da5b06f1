// Package db provides the PostgreSQL pool, migrations, and pg helpers.
package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floofteam/meowvolt/internal/config"
)

// Open connects a pgx pool using the configured DSN.
func Open(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, DSN(cfg))
}
