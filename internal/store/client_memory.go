package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/lzhahn/CountMe-sub003/models"
)

// memoryRecordStore is a map-backed [RecordStore]. With a file path it
// snapshots its whole state as JSON after every write; with ":memory:" or an
// empty path it keeps nothing across restarts.
type memoryRecordStore struct {
	path     string
	inMemory bool

	mu    sync.RWMutex
	items map[recordKey]storedRecord
	queue []models.QueuedOperation
}

type recordKey struct {
	entityType models.EntityType
	id         string
}

// storedRecord keeps the encoded form so callers never share memory with the
// store.
type storedRecord struct {
	EntityType models.EntityType `json:"entity_type"`
	Document   models.Document   `json:"document"`
}

type memoryPersistedState struct {
	Records []storedRecord           `json:"records"`
	Queue   []models.QueuedOperation `json:"queue,omitempty"`
}

// NewMemoryRecordStore returns a map-backed record store, loading any state
// previously written to path.
func NewMemoryRecordStore(path string) (RecordStore, error) {
	if path == "" {
		path = inMemoryDSN
	}

	s := &memoryRecordStore{
		path:     path,
		inMemory: path == inMemoryDSN,
		items:    make(map[recordKey]storedRecord),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *memoryRecordStore) Create(_ context.Context, rec models.SyncableRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{entityType: rec.EntityType(), id: rec.Meta().ID}
	if _, ok := s.items[key]; ok {
		return fmt.Errorf("%w: %s %s", ErrRecordExists, key.entityType, key.id)
	}

	s.items[key] = storedRecord{EntityType: key.entityType, Document: rec.ToRemoteDocument()}
	return s.persist()
}

func (s *memoryRecordStore) Read(_ context.Context, entityType models.EntityType, id string) (models.SyncableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[recordKey{entityType: entityType, id: id}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrRecordNotFound, entityType, id)
	}
	return item.decode()
}

func (s *memoryRecordStore) Update(_ context.Context, rec models.SyncableRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{entityType: rec.EntityType(), id: rec.Meta().ID}
	if _, ok := s.items[key]; !ok {
		return fmt.Errorf("%w: %s %s", ErrRecordNotFound, key.entityType, key.id)
	}

	s.items[key] = storedRecord{EntityType: key.entityType, Document: rec.ToRemoteDocument()}
	return s.persist()
}

func (s *memoryRecordStore) Delete(_ context.Context, entityType models.EntityType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{entityType: entityType, id: id}
	if _, ok := s.items[key]; !ok {
		return fmt.Errorf("%w: %s %s", ErrRecordNotFound, entityType, id)
	}

	delete(s.items, key)
	return s.persist()
}

func (s *memoryRecordStore) Query(_ context.Context, p Predicate) ([]models.SyncableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.SyncableRecord, 0, 16)
	for key, item := range s.items {
		if key.entityType != p.EntityType {
			continue
		}
		rec, err := item.decode()
		if err != nil {
			continue
		}
		if p.Matches(rec) {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].Meta(), records[j].Meta()
		if !a.LastModified.Equal(b.LastModified) {
			return a.LastModified.Before(b.LastModified)
		}
		return a.ID < b.ID
	})

	return records, nil
}

func (s *memoryRecordStore) SaveQueue(_ context.Context, ops []models.QueuedOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = make([]models.QueuedOperation, len(ops))
	for i, op := range ops {
		op.Payload = op.Payload.Clone()
		s.queue[i] = op
	}
	return s.persist()
}

func (s *memoryRecordStore) LoadQueue(_ context.Context) ([]models.QueuedOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ops := make([]models.QueuedOperation, len(s.queue))
	for i, op := range s.queue {
		op.Payload = op.Payload.Clone()
		ops[i] = op
	}
	return ops, nil
}

func (r storedRecord) decode() (models.SyncableRecord, error) {
	return models.DecodeDocument(r.EntityType, r.Document.Clone())
}

func (s *memoryRecordStore) load() error {
	if s.inMemory {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read local storage file: %w", err)
	}

	var st memoryPersistedState
	if err = json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode local storage file: %w", err)
	}

	for _, item := range st.Records {
		rec, err := item.decode()
		if err != nil {
			return fmt.Errorf("decode local storage file: %w", err)
		}
		s.items[recordKey{entityType: item.EntityType, id: rec.Meta().ID}] = item
	}
	s.queue = st.Queue

	return nil
}

// persist must be called with mu held.
func (s *memoryRecordStore) persist() error {
	if s.inMemory {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create local storage dir: %w", err)
		}
	}

	state := memoryPersistedState{
		Records: make([]storedRecord, 0, len(s.items)),
		Queue:   s.queue,
	}
	for _, item := range s.items {
		state.Records = append(state.Records, item)
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write local storage file: %w", err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write local storage file: %w", err)
	}

	return nil
}
