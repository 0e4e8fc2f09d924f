package store

import (
	"context"
	"fmt"
	"io"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
)

// Storages groups the backend repositories.
type Storages struct {
	DocumentRepository DocumentRepository

	closer io.Closer
}

// NewStorages connects to PostgreSQL and migrates it when dsn is set, and
// falls back to the in-memory repository otherwise.
func NewStorages(ctx context.Context, dsn string, log *logger.Logger) (*Storages, error) {
	if dsn == "" {
		log.Warn().Str("func", "NewStorages").Msg("no database configured, documents are kept in memory")
		return &Storages{DocumentRepository: NewMemoryDocumentRepository()}, nil
	}

	db, err := NewConnectPostgres(ctx, dsn, log)
	if err != nil {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}

	if err := db.MigrateServer(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		DocumentRepository: NewDocumentRepository(db, log),
		closer:             db,
	}, nil
}

// Close releases the database connection, if any.
func (s *Storages) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
