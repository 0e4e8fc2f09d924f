package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lzhahn/CountMe-sub003/models"
)

// memoryDocumentRepository is a map-backed [DocumentRepository] used when the
// backend runs without a database and in tests.
type memoryDocumentRepository struct {
	mu   sync.RWMutex
	docs map[string]map[string]ownedDocument
}

type ownedDocument struct {
	ownerID string
	doc     models.Document
}

func NewMemoryDocumentRepository() DocumentRepository {
	return &memoryDocumentRepository{
		docs: make(map[string]map[string]ownedDocument),
	}
}

func (m *memoryDocumentRepository) PutDocument(_ context.Context, collection, ownerID, id string, doc models.Document) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.docs[collection]
	if !ok {
		coll = make(map[string]ownedDocument)
		m.docs[collection] = coll
	}

	existing, exists := coll[id]
	if exists && existing.ownerID != ownerID {
		return false, fmt.Errorf("%w: %s/%s", ErrOwnerMismatch, collection, id)
	}

	coll[id] = ownedDocument{ownerID: ownerID, doc: doc.Clone()}
	return !exists, nil
}

func (m *memoryDocumentRepository) GetDocument(_ context.Context, collection, ownerID, id string) (models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	existing, ok := m.docs[collection][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
	}
	if existing.ownerID != ownerID {
		return nil, fmt.Errorf("%w: %s/%s", ErrOwnerMismatch, collection, id)
	}
	return existing.doc.Clone(), nil
}

func (m *memoryDocumentRepository) DeleteDocument(_ context.Context, collection, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.docs[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, id)
	}
	if existing.ownerID != ownerID {
		return fmt.Errorf("%w: %s/%s", ErrOwnerMismatch, collection, id)
	}

	delete(m.docs[collection], id)
	return nil
}

func (m *memoryDocumentRepository) QueryByOwner(_ context.Context, collection, ownerID string) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.docs[collection]))
	for id, existing := range m.docs[collection] {
		if existing.ownerID == ownerID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	docs := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, m.docs[collection][id].doc.Clone())
	}
	return docs, nil
}
