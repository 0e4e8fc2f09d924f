// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the client-side view of the remote document store.
//
// The primary abstraction is [ServerAdapter], which decouples the sync engine
// from the underlying protocol. The package ships an HTTP/REST implementation
// ([NewHTTPServerAdapter]) whose change feed runs over a websocket.
//
// Transport failures are mapped onto the sentinel values in errors.go so that
// callers can use [errors.Is] regardless of protocol. Failures worth retrying
// additionally wrap [ErrTransient].
package adapter

import (
	"context"

	"github.com/lzhahn/CountMe-sub003/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// RemoteStore is the authoritative document store, organized as named
// collections of documents keyed by id.
type RemoteStore interface {
	// PutDocument creates or replaces the document at collection/id.
	PutDocument(ctx context.Context, collection, id string, doc models.Document) error

	// GetDocument returns [ErrNotFound] (wrapped) when no document exists.
	GetDocument(ctx context.Context, collection, id string) (models.Document, error)

	// DeleteDocument removes collection/id. Deleting a missing document
	// succeeds.
	DeleteDocument(ctx context.Context, collection, id string) error

	// QueryByOwner returns every document in collection owned by ownerID.
	QueryByOwner(ctx context.Context, collection, ownerID string) ([]models.Document, error)

	// Subscribe streams changes to ownerID's documents in collection until ctx
	// is cancelled or the connection drops, after which the channel is closed.
	Subscribe(ctx context.Context, collection, ownerID string) (<-chan models.DocumentChange, error)
}

// TokenHolder keeps the bearer token attached to authenticated requests.
type TokenHolder interface {
	// SetToken stores token for subsequent requests. An empty token clears it.
	SetToken(token string)

	// Token returns the stored token, or "" when none is set.
	Token() string
}

// ServerAdapter is a RemoteStore that carries its own credentials.
type ServerAdapter interface {
	RemoteStore
	TokenHolder
}
