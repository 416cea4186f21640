// Package db connects to PostgreSQL and applies schema migrations.
//
// It wraps [github.com/jackc/pgx/v5/pgxpool] with startup retries and
// [github.com/pressly/goose/v3] migrations read from an fs.FS, usually an
// embedded directory owned by the package that needs the schema.
//
// Settings come from the environment:
//
//	DATABASE_CONN_URL           - PostgreSQL URL; empty disables Postgres
//	DATABASE_MAX_OPEN_CONNS     - maximum open connections (default: 10)
//	DATABASE_MIN_CONNS          - minimum idle connections (default: 2)
//	DATABASE_HEALTHCHECK_PERIOD - pool health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - maximum idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - startup retries (default: 3)
//	DATABASE_RETRY_INTERVAL     - base startup backoff (default: 2s)
//	DATABASE_MIGRATIONS_TABLE   - goose version table (default: assetflow_migrations)
//
// Usage:
//
//	pool, err := db.Connect(ctx, cfg.Database)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := db.Migrate(ctx, pool, slotstore.Migrations(), cfg.Database.MigrationsTable, log); err != nil {
//		return err
//	}
package db
