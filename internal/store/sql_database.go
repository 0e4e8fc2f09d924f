package store

import (
	"database/sql"
	"fmt"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/migrations"
)

// DB wraps a database handle with the error classifier of its driver.
type DB struct {
	*sql.DB
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// MigrateClient applies the embedded SQLite schema.
func (db *DB) MigrateClient() error {
	return migrations.MigrateClient(db.DB)
}

// MigrateServer applies the embedded PostgreSQL schema.
func (db *DB) MigrateServer() error {
	return migrations.MigrateServer(db.DB)
}

// classify wraps retryable driver errors with ErrTemporarilyUnavailable so
// callers can match them without knowing the driver.
func (db *DB) classify(err error) error {
	if err == nil || db.errorClassificator == nil {
		return err
	}
	if db.errorClassificator.Classify(err) == Retryable {
		return fmt.Errorf("%w: %w", ErrTemporarilyUnavailable, err)
	}
	return err
}
