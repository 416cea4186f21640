package db

import "errors"

var (
	ErrNotConfigured            = errors.New("db: connection string is not configured")
	ErrFailedToParseDBConfig    = errors.New("db: failed to parse database configuration")
	ErrFailedToOpenDBConnection = errors.New("db: failed to open database connection")
	ErrHealthcheckFailed        = errors.New("db: healthcheck failed")
	ErrMigrationSetup           = errors.New("db: failed to set up migrations")
	ErrApplyMigrations          = errors.New("db: failed to apply migrations")
)
