package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lzhahn/CountMe-sub003/models"
)

// recordRow is the stored form of a record. The metadata columns duplicate
// what the document holds so that queries can filter without decoding.
type recordRow struct {
	EntityType   string
	ID           string
	OwnerID      string
	LastModified int64
	Status       string
	Deleted      bool
	OccurredAt   sql.NullInt64
	Document     string
}

func newRecordRow(rec models.SyncableRecord) (recordRow, error) {
	meta := rec.Meta()

	raw, err := json.Marshal(rec.ToRemoteDocument())
	if err != nil {
		return recordRow{}, fmt.Errorf("%w: %s %s: %w", ErrEncodingDocument, rec.EntityType(), meta.ID, err)
	}

	row := recordRow{
		EntityType:   string(rec.EntityType()),
		ID:           meta.ID,
		OwnerID:      meta.OwnerID,
		LastModified: meta.LastModified.UnixMilli(),
		Status:       string(meta.Status),
		Deleted:      meta.Deleted,
		Document:     string(raw),
	}
	if dated, ok := rec.(models.Dated); ok {
		row.OccurredAt = sql.NullInt64{Int64: dated.OccurredAt().UnixMilli(), Valid: true}
	}

	return row, nil
}

func (r recordRow) values() []any {
	return []any{r.EntityType, r.ID, r.OwnerID, r.LastModified, r.Status, r.Deleted, r.OccurredAt, r.Document}
}

func decodeRecord(entityType models.EntityType, raw []byte) (models.SyncableRecord, error) {
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingDocument, err)
	}

	rec, err := models.DecodeDocument(entityType, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingDocument, err)
	}
	return rec, nil
}

// queueRow is the stored form of a queued operation.
type queueRow struct {
	Seq        int64
	EntityType string
	EntityID   string
	Kind       string
	EnqueuedAt int64
	Payload    sql.NullString
	Base       sql.NullString
}

func newQueueRow(op models.QueuedOperation) (queueRow, error) {
	row := queueRow{
		Seq:        int64(op.Seq),
		EntityType: string(op.EntityType),
		EntityID:   op.EntityID,
		Kind:       string(op.Kind),
		EnqueuedAt: op.EnqueuedAt.UnixMilli(),
	}
	var err error
	if row.Payload, err = nullDocument(op.Payload); err != nil {
		return queueRow{}, fmt.Errorf("%w: queued %s %s: %w", ErrEncodingDocument, op.EntityType, op.EntityID, err)
	}
	if row.Base, err = nullDocument(op.Base); err != nil {
		return queueRow{}, fmt.Errorf("%w: base of queued %s %s: %w", ErrEncodingDocument, op.EntityType, op.EntityID, err)
	}
	return row, nil
}

func nullDocument(doc models.Document) (sql.NullString, error) {
	if doc == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func (r queueRow) operation() (models.QueuedOperation, error) {
	kind, err := models.ParseOperationKind(r.Kind)
	if err != nil {
		return models.QueuedOperation{}, fmt.Errorf("%w: %w", ErrEncodingDocument, err)
	}

	op := models.QueuedOperation{
		Seq:        uint64(r.Seq),
		EntityID:   r.EntityID,
		EntityType: models.EntityType(r.EntityType),
		Kind:       kind,
		EnqueuedAt: time.UnixMilli(r.EnqueuedAt).UTC(),
	}
	if r.Payload.Valid {
		if err := json.Unmarshal([]byte(r.Payload.String), &op.Payload); err != nil {
			return models.QueuedOperation{}, fmt.Errorf("%w: %w", ErrEncodingDocument, err)
		}
	}
	if r.Base.Valid {
		if err := json.Unmarshal([]byte(r.Base.String), &op.Base); err != nil {
			return models.QueuedOperation{}, fmt.Errorf("%w: base: %w", ErrEncodingDocument, err)
		}
	}
	return op, nil
}
