package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/models"
)

// localRecordRepository is the SQLite-backed [LocalStore] and [QueueStore].
type localRecordRepository struct {
	*DB
	logger *logger.Logger
}

// NewLocalRecordRepository builds the SQLite record store on an already
// migrated database.
func NewLocalRecordRepository(db *DB, logger *logger.Logger) RecordStore {
	return &localRecordRepository{
		DB:     db,
		logger: logger,
	}
}

func (l *localRecordRepository) Create(ctx context.Context, rec models.SyncableRecord) error {
	log := logger.FromContext(ctx)

	row, err := newRecordRow(rec)
	if err != nil {
		return err
	}

	query, args, err := buildInsertRecordQuery(row)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = l.DB.ExecContext(ctx, query, args...); err != nil {
		if isSQLiteDuplicate(err) {
			return fmt.Errorf("%w: %s %s", ErrRecordExists, row.EntityType, row.ID)
		}
		log.Err(err).
			Str("func", "localRecordRepository.Create").
			Str("entity_type", row.EntityType).
			Str("id", row.ID).
			Msg("failed to insert record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, l.classify(err))
	}

	return nil
}

func (l *localRecordRepository) Read(ctx context.Context, entityType models.EntityType, id string) (models.SyncableRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectRecordQuery(entityType, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var raw string
	err = l.DB.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrRecordNotFound, entityType, id)
	}
	if err != nil {
		log.Err(err).
			Str("func", "localRecordRepository.Read").
			Str("entity_type", string(entityType)).
			Str("id", id).
			Msg("failed to read record")
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, l.classify(err))
	}

	return decodeRecord(entityType, []byte(raw))
}

func (l *localRecordRepository) Update(ctx context.Context, rec models.SyncableRecord) error {
	log := logger.FromContext(ctx)

	row, err := newRecordRow(rec)
	if err != nil {
		return err
	}

	query, args, err := buildUpdateRecordQuery(row)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := l.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "localRecordRepository.Update").
			Str("entity_type", row.EntityType).
			Str("id", row.ID).
			Msg("failed to update record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, l.classify(err))
	}

	return expectAffected(res, row.EntityType, row.ID)
}

func (l *localRecordRepository) Delete(ctx context.Context, entityType models.EntityType, id string) error {
	log := logger.FromContext(ctx)

	query, args, err := buildDeleteRecordQuery(entityType, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := l.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "localRecordRepository.Delete").
			Str("entity_type", string(entityType)).
			Str("id", id).
			Msg("failed to delete record")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, l.classify(err))
	}

	return expectAffected(res, string(entityType), id)
}

func (l *localRecordRepository) Query(ctx context.Context, p Predicate) ([]models.SyncableRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildQueryRecordsQuery(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := l.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "localRecordRepository.Query").
			Str("entity_type", string(p.EntityType)).
			Msg("failed to execute records query")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, l.classify(err))
	}
	defer rows.Close()

	records := make([]models.SyncableRecord, 0, 16)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		rec, err := decodeRecord(p.EntityType, []byte(raw))
		if err != nil {
			// one corrupt row must not hide the rest
			log.Warn().Err(err).
				Str("func", "localRecordRepository.Query").
				Str("entity_type", string(p.EntityType)).
				Msg("skipping undecodable record")
			continue
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		log.Err(err).
			Str("func", "localRecordRepository.Query").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return records, nil
}

func (l *localRecordRepository) SaveQueue(ctx context.Context, ops []models.QueuedOperation) error {
	log := logger.FromContext(ctx)

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback() //nolint:errcheck

	clearQuery, args, err := buildClearQueueQuery()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err := tx.ExecContext(ctx, clearQuery, args...); err != nil {
		log.Err(err).Str("func", "localRecordRepository.SaveQueue").Msg("failed to clear queue")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, l.classify(err))
	}

	for i, op := range ops {
		row, err := newQueueRow(op)
		if err != nil {
			return err
		}

		insert, args, err := buildInsertQueueQuery(i, row)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			log.Err(err).
				Str("func", "localRecordRepository.SaveQueue").
				Int("position", i).
				Str("entity_id", op.EntityID).
				Msg("failed to insert queued operation")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, l.classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}
	return nil
}

func (l *localRecordRepository) LoadQueue(ctx context.Context) ([]models.QueuedOperation, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectQueueQuery()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := l.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "localRecordRepository.LoadQueue").Msg("failed to load queue")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, l.classify(err))
	}
	defer rows.Close()

	ops := make([]models.QueuedOperation, 0, 16)
	for rows.Next() {
		var row queueRow
		if err := rows.Scan(&row.Seq, &row.EntityType, &row.EntityID, &row.Kind, &row.EnqueuedAt, &row.Payload, &row.Base); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		op, err := row.operation()
		if err != nil {
			log.Warn().Err(err).
				Str("func", "localRecordRepository.LoadQueue").
				Str("entity_id", row.EntityID).
				Msg("skipping undecodable queued operation")
			continue
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return ops, nil
}

func expectAffected(res sql.Result, entityType, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrRecordNotFound, entityType, id)
	}
	return nil
}
