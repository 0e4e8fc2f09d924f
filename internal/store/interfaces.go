package store

import (
	"context"

	"github.com/lzhahn/CountMe-sub003/models"
)

// DocumentRepository is the backend's document store. Every document is
// scoped by collection and owner.
type DocumentRepository interface {
	// PutDocument creates or replaces a document. created reports whether the
	// document did not exist before. Returns ErrOwnerMismatch when the id is
	// held by another owner.
	PutDocument(ctx context.Context, collection, ownerID, id string, doc models.Document) (created bool, err error)
	GetDocument(ctx context.Context, collection, ownerID, id string) (models.Document, error)
	DeleteDocument(ctx context.Context, collection, ownerID, id string) error
	QueryByOwner(ctx context.Context, collection, ownerID string) ([]models.Document, error)
}

// ErrorClassificator decides whether a database error is worth retrying.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}
