// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/lzhahn/CountMe-sub003/models"
)

var sqlite = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var recordColumns = []string{
	"entity_type",
	"id",
	"owner_id",
	"last_modified",
	"sync_status",
	"deleted",
	"occurred_at",
	"document",
}

var queueColumns = []string{
	"position",
	"seq",
	"entity_type",
	"entity_id",
	"kind",
	"enqueued_at",
	"payload",
	"base",
}

func buildInsertRecordQuery(row recordRow) (string, []any, error) {
	return sqlite.Insert("records").
		Columns(recordColumns...).
		Values(row.values()...).
		ToSql()
}

func buildSelectRecordQuery(entityType models.EntityType, id string) (string, []any, error) {
	return sqlite.Select("document").
		From("records").
		Where(sq.Eq{"entity_type": string(entityType), "id": id}).
		ToSql()
}

func buildUpdateRecordQuery(row recordRow) (string, []any, error) {
	return sqlite.Update("records").
		SetMap(map[string]any{
			"owner_id":      row.OwnerID,
			"last_modified": row.LastModified,
			"sync_status":   row.Status,
			"deleted":       row.Deleted,
			"occurred_at":   row.OccurredAt,
			"document":      row.Document,
		}).
		Where(sq.Eq{"entity_type": row.EntityType, "id": row.ID}).
		ToSql()
}

func buildDeleteRecordQuery(entityType models.EntityType, id string) (string, []any, error) {
	return sqlite.Delete("records").
		Where(sq.Eq{"entity_type": string(entityType), "id": id}).
		ToSql()
}

func buildQueryRecordsQuery(p Predicate) (string, []any, error) {
	query := sqlite.Select("document").
		From("records").
		Where(sq.Eq{"entity_type": string(p.EntityType)})

	if len(p.Owners) > 0 {
		query = query.Where(sq.Eq{"owner_id": p.Owners})
	}
	if len(p.Statuses) > 0 {
		statuses := make([]string, 0, len(p.Statuses))
		for _, s := range p.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where(sq.Eq{"sync_status": statuses})
	}
	if p.OccurredBefore != nil {
		query = query.Where(sq.Lt{"occurred_at": p.OccurredBefore.UnixMilli()})
	}
	if p.OccurredOn != nil {
		query = query.Where(sq.Eq{"occurred_at": p.OccurredOn.UnixMilli()})
	}
	if !p.IncludeDeleted {
		query = query.Where(sq.Eq{"deleted": false})
	}

	return query.OrderBy("last_modified", "id").ToSql()
}

func buildClearQueueQuery() (string, []any, error) {
	return sqlite.Delete("pending_operations").ToSql()
}

func buildInsertQueueQuery(position int, row queueRow) (string, []any, error) {
	return sqlite.Insert("pending_operations").
		Columns(queueColumns...).
		Values(position, row.Seq, row.EntityType, row.EntityID, row.Kind, row.EnqueuedAt, row.Payload, row.Base).
		ToSql()
}

func buildSelectQueueQuery() (string, []any, error) {
	return sqlite.Select(queueColumns[1:]...).
		From("pending_operations").
		OrderBy("position").
		ToSql()
}
