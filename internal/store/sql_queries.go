package store

import (
	sq "github.com/Masterminds/squirrel"
)

var postgres = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// buildUpsertDocumentQuery inserts or replaces a document. The conflict branch
// only fires for the same owner, so a row held by someone else yields no
// RETURNING row at all.
func buildUpsertDocumentQuery(collection, ownerID, id string, body []byte) (string, []any, error) {
	return postgres.Insert("documents").
		Columns("collection", "id", "owner_id", "body", "updated_at").
		Values(collection, id, ownerID, body, sq.Expr("now()")).
		Suffix(`ON CONFLICT (collection, id) DO UPDATE
			SET body = EXCLUDED.body, updated_at = now()
			WHERE documents.owner_id = EXCLUDED.owner_id
			RETURNING (xmax = 0) AS created`).
		ToSql()
}

func buildSelectDocumentQuery(collection, id string) (string, []any, error) {
	return postgres.Select("owner_id", "body").
		From("documents").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
}

func buildDeleteDocumentQuery(collection, ownerID, id string) (string, []any, error) {
	return postgres.Delete("documents").
		Where(sq.Eq{"collection": collection, "id": id, "owner_id": ownerID}).
		ToSql()
}

func buildSelectOwnerDocumentsQuery(collection, ownerID string) (string, []any, error) {
	return postgres.Select("body").
		From("documents").
		Where(sq.Eq{"collection": collection, "owner_id": ownerID}).
		OrderBy("id").
		ToSql()
}
