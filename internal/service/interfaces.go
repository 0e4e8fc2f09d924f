package service

import (
	"context"

	"github.com/lzhahn/CountMe-sub003/models"
)

// DocumentService is the backend side of the remote store. The caller's owner
// id is taken from the request context; every operation is confined to
// documents of that owner.
type DocumentService interface {
	// PutDocument validates doc against its collection's schema and stores
	// it, notifying subscribers of the change.
	PutDocument(ctx context.Context, collection, id string, doc models.Document) error
	GetDocument(ctx context.Context, collection, id string) (models.Document, error)
	DeleteDocument(ctx context.Context, collection, id string) error
	// QueryByOwner lists a collection. ownerID must be empty or the caller.
	QueryByOwner(ctx context.Context, collection, ownerID string) ([]models.Document, error)
	// Subscribe returns a feed of changes to the caller's documents in
	// collection. The feed ends when ctx is done or the subscriber falls too
	// far behind.
	Subscribe(ctx context.Context, collection string) (<-chan models.DocumentChange, error)
}

type AuthService interface {
	CreateToken(ctx context.Context, ownerID string) (models.Token, error)
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}
