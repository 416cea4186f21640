package db

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	"github.com/dmitrymomot/assetflow/pkg/logger"
)

// Migrate applies the pending SQL migrations at the root of migrations.
// Applied versions are tracked in table, or goose's default table when empty.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS, table string, log *slog.Logger) error {
	if table == "" {
		table = "goose_db_version"
	}
	if log == nil {
		log = logger.NewNope()
	}
	store, err := database.NewStore(database.DialectPostgres, table)
	if err != nil {
		return errors.Join(ErrMigrationSetup, err)
	}

	// Shares the pool's connections; closing it would close the pool.
	sqlDB := stdlib.OpenDBFromPool(pool)

	provider, err := goose.NewProvider("", sqlDB, migrations, goose.WithStore(store))
	if err != nil {
		return errors.Join(ErrMigrationSetup, err)
	}

	results, err := provider.Up(ctx)
	for _, r := range results {
		if r.Source == nil {
			continue
		}
		log.InfoContext(ctx, "migration applied",
			slog.String("component", "migrations"),
			slog.Int64("version", r.Source.Version),
			slog.String("file", r.Source.Path),
			slog.Duration("duration", r.Duration),
		)
	}
	if err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}
	return nil
}
