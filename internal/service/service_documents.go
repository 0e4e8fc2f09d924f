// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/store"
	"github.com/lzhahn/CountMe-sub003/internal/utils"
	"github.com/lzhahn/CountMe-sub003/models"
)

type documentService struct {
	repository store.DocumentRepository
	hub        *ChangeHub

	logger *logger.Logger
}

// NewDocumentService returns a DocumentService backed by repository that
// announces every accepted write on hub.
func NewDocumentService(repository store.DocumentRepository, hub *ChangeHub, logger *logger.Logger) DocumentService {
	return &documentService{repository: repository, hub: hub, logger: logger}
}

// PutDocument implements DocumentService. The document must decode as an
// entity of the collection, carry the path id and belong to the caller.
func (s *documentService) PutDocument(ctx context.Context, collection, id string, doc models.Document) error {
	log := logger.FromContext(ctx)

	ownerID, desc, err := s.scope(ctx, collection)
	if err != nil {
		return err
	}
	if id == "" || doc == nil {
		return ErrInvalidDataProvided
	}

	rec, err := desc.Decode(doc)
	if err != nil {
		log.Debug().Err(err).Str("collection", collection).Str("id", id).Msg("rejecting malformed document")
		return err
	}
	if rec.Meta().ID != id {
		return fmt.Errorf("%w: body id %q, path id %q", ErrDocumentIDMismatch, rec.Meta().ID, id)
	}
	if rec.Meta().OwnerID != ownerID {
		log.Warn().Str("collection", collection).Str("id", id).Str("owner_id", ownerID).
			Str("document_owner_id", rec.Meta().OwnerID).Msg("document owner does not match caller")
		return ErrOwnershipMismatch
	}

	created, err := s.repository.PutDocument(ctx, collection, ownerID, id, doc)
	if err != nil {
		if errors.Is(err, store.ErrOwnerMismatch) {
			return fmt.Errorf("%w: %w", ErrOwnershipMismatch, err)
		}
		log.Err(err).Str("collection", collection).Str("id", id).Msg("storing document failed")
		return fmt.Errorf("storing document: %w", err)
	}

	change := models.ChangeModified
	if created {
		change = models.ChangeAdded
	}
	s.hub.Publish(ownerID, models.DocumentChange{Type: change, Collection: collection, ID: id, Document: doc})
	return nil
}

// GetDocument implements DocumentService.
func (s *documentService) GetDocument(ctx context.Context, collection, id string) (models.Document, error) {
	ownerID, _, err := s.scope(ctx, collection)
	if err != nil {
		return nil, err
	}

	doc, err := s.repository.GetDocument(ctx, collection, ownerID, id)
	if err != nil {
		return nil, ownerError(err)
	}
	return doc, nil
}

// DeleteDocument implements DocumentService.
func (s *documentService) DeleteDocument(ctx context.Context, collection, id string) error {
	ownerID, _, err := s.scope(ctx, collection)
	if err != nil {
		return err
	}

	if err = s.repository.DeleteDocument(ctx, collection, ownerID, id); err != nil {
		return ownerError(err)
	}

	s.hub.Publish(ownerID, models.DocumentChange{Type: models.ChangeRemoved, Collection: collection, ID: id})
	return nil
}

// QueryByOwner implements DocumentService.
func (s *documentService) QueryByOwner(ctx context.Context, collection, ownerID string) ([]models.Document, error) {
	caller, _, err := s.scope(ctx, collection)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && ownerID != caller {
		return nil, ErrOwnershipMismatch
	}

	docs, err := s.repository.QueryByOwner(ctx, collection, caller)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// Subscribe implements DocumentService.
func (s *documentService) Subscribe(ctx context.Context, collection string) (<-chan models.DocumentChange, error) {
	ownerID, _, err := s.scope(ctx, collection)
	if err != nil {
		return nil, err
	}

	sub := s.hub.Subscribe(collection, ownerID)
	context.AfterFunc(ctx, func() { s.hub.Unsubscribe(sub) })
	return sub.C(), nil
}

// scope resolves the caller and the collection descriptor.
func (s *documentService) scope(ctx context.Context, collection string) (string, models.EntityDescriptor, error) {
	ownerID, ok := utils.GetOwnerIDFromContext(ctx)
	if !ok {
		return "", models.EntityDescriptor{}, ErrTokenIsExpiredOrInvalid
	}

	desc, err := models.DescribeCollection(collection)
	if err != nil {
		return "", models.EntityDescriptor{}, fmt.Errorf("%w: %w", ErrUnknownCollection, err)
	}
	return ownerID, desc, nil
}

func ownerError(err error) error {
	if errors.Is(err, store.ErrOwnerMismatch) {
		return fmt.Errorf("%w: %w", ErrOwnershipMismatch, err)
	}
	return err
}
