package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lzhahn/CountMe-sub003/internal/config"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
)

// ClientStorages groups the client-side stores into a single value that can
// be passed to the sync engine.
type ClientStorages struct {
	// Records holds every syncable record on the device.
	Records LocalStore
	// Queue persists pending uploads between runs.
	Queue QueueStore

	closer io.Closer
}

// NewClientStorages initialises the client storage layer:
//   - a DSN ending in ".json" selects the map-backed store snapshotted to
//     that file;
//   - anything else is opened as SQLite (":memory:" included) and migrated.
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, logger *logger.Logger) (*ClientStorages, error) {
	logger.Info().Str("dsn", cfg.DB.DSN).Msg("creating new storages...")

	if strings.HasSuffix(cfg.DB.DSN, ".json") {
		records, err := NewMemoryRecordStore(cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("json storage error: %w", err)
		}
		return &ClientStorages{Records: records, Queue: records}, nil
	}

	db, err := NewConnectSQLite(ctx, cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.MigrateClient(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	records := NewLocalRecordRepository(db, logger)
	return &ClientStorages{Records: records, Queue: records, closer: db}, nil
}

// Close releases the underlying database, if any.
func (s *ClientStorages) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
