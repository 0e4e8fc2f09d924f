// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/models"
)

// documentRepository is the PostgreSQL-backed implementation of
// [DocumentRepository]. Bodies are stored as JSONB in the "documents" table.
//
// Every public method obtains a context-scoped logger via
// [logger.FromContext] so that database interactions are traced with the
// request's fields.
type documentRepository struct {
	*DB
	logger *logger.Logger
}

// NewDocumentRepository constructs a [DocumentRepository] backed by the
// provided database connection and logger.
func NewDocumentRepository(db *DB, logger *logger.Logger) DocumentRepository {
	return &documentRepository{
		DB:     db,
		logger: logger,
	}
}

func (d *documentRepository) PutDocument(ctx context.Context, collection, ownerID, id string, doc models.Document) (bool, error) {
	log := logger.FromContext(ctx)

	body, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrEncodingDocument, err)
	}

	query, args, err := buildUpsertDocumentQuery(collection, ownerID, id, body)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var created bool
	err = d.DB.QueryRowContext(ctx, query, args...).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: %s/%s", ErrOwnerMismatch, collection, id)
	}
	if err != nil {
		log.Err(err).
			Str("func", "documentRepository.PutDocument").
			Str("collection", collection).
			Str("id", id).
			Str("pg_code", postgresError(err)).
			Msg("failed to upsert document")
		return false, fmt.Errorf("%w: %w", ErrExecutingStatement, d.classify(err))
	}

	return created, nil
}

func (d *documentRepository) GetDocument(ctx context.Context, collection, ownerID, id string) (models.Document, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectDocumentQuery(collection, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var (
		owner string
		body  []byte
	)
	err = d.DB.QueryRowContext(ctx, query, args...).Scan(&owner, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
	}
	if err != nil {
		log.Err(err).
			Str("func", "documentRepository.GetDocument").
			Str("collection", collection).
			Str("id", id).
			Str("pg_code", postgresError(err)).
			Msg("failed to select document")
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, d.classify(err))
	}

	if owner != ownerID {
		return nil, fmt.Errorf("%w: %s/%s", ErrOwnerMismatch, collection, id)
	}

	var doc models.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingDocument, err)
	}
	return doc, nil
}

func (d *documentRepository) DeleteDocument(ctx context.Context, collection, ownerID, id string) error {
	log := logger.FromContext(ctx)

	query, args, err := buildDeleteDocumentQuery(collection, ownerID, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	res, err := d.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "documentRepository.DeleteDocument").
			Str("collection", collection).
			Str("id", id).
			Str("pg_code", postgresError(err)).
			Msg("failed to delete document")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, d.classify(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if n > 0 {
		return nil
	}

	// nothing deleted: tell a missing document from a foreign one
	if _, err := d.GetDocument(ctx, collection, ownerID, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
}

func (d *documentRepository) QueryByOwner(ctx context.Context, collection, ownerID string) ([]models.Document, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectOwnerDocumentsQuery(collection, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "documentRepository.QueryByOwner").
			Str("collection", collection).
			Str("owner_id", ownerID).
			Str("pg_code", postgresError(err)).
			Msg("failed to execute query for owner documents")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, d.classify(err))
	}
	defer rows.Close()

	docs := make([]models.Document, 0, 50)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			log.Err(err).
				Str("func", "documentRepository.QueryByOwner").
				Msg("failed to scan document row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}

		var doc models.Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodingDocument, err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		log.Err(err).
			Str("func", "documentRepository.QueryByOwner").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return docs, nil
}
