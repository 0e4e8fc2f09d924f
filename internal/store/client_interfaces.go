package store

import (
	"context"
	"time"

	"github.com/lzhahn/CountMe-sub003/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_store_mock.go -package=mock

// LocalStore is the on-device record store. It is the source of truth for
// reads while offline. Tombstones (Deleted records) are ordinary rows until
// removed with Delete.
type LocalStore interface {
	// Create inserts a new record. Returns ErrRecordExists if the id is taken.
	Create(ctx context.Context, rec models.SyncableRecord) error
	// Read returns ErrRecordNotFound when the record does not exist.
	Read(ctx context.Context, entityType models.EntityType, id string) (models.SyncableRecord, error)
	// Update replaces a stored record. Returns ErrRecordNotFound if absent.
	Update(ctx context.Context, rec models.SyncableRecord) error
	// Delete removes a record permanently. Returns ErrRecordNotFound if absent.
	Delete(ctx context.Context, entityType models.EntityType, id string) error
	// Query lists records of one entity type matching the predicate, ordered
	// by last modification.
	Query(ctx context.Context, p Predicate) ([]models.SyncableRecord, error)
}

// RecordStore is a LocalStore that also keeps the operation queue, so both
// live in the same database file.
type RecordStore interface {
	LocalStore
	QueueStore
}

// QueueStore persists the pending operation queue between runs.
type QueueStore interface {
	// SaveQueue replaces the stored queue with ops, in order.
	SaveQueue(ctx context.Context, ops []models.QueuedOperation) error
	LoadQueue(ctx context.Context) ([]models.QueuedOperation, error)
}

// Predicate filters LocalStore.Query. Zero-valued fields do not filter.
type Predicate struct {
	EntityType models.EntityType
	// Owners restricts the owner id. Use "" to select unowned records.
	Owners []string
	// Statuses restricts the sync status.
	Statuses []models.SyncStatus
	// OccurredBefore selects dated records that happened strictly before the
	// instant. Records without a date never match.
	OccurredBefore *time.Time
	// OccurredOn selects dated records that happened exactly at the instant.
	// Daily logs are dated at midnight UTC, so this finds the log of a day.
	OccurredOn *time.Time
	// IncludeDeleted also returns tombstones.
	IncludeDeleted bool
}

// Matches evaluates the predicate against a single record.
func (p Predicate) Matches(rec models.SyncableRecord) bool {
	if rec.EntityType() != p.EntityType {
		return false
	}

	meta := rec.Meta()
	if meta.Deleted && !p.IncludeDeleted {
		return false
	}
	if len(p.Owners) > 0 && !contains(p.Owners, meta.OwnerID) {
		return false
	}
	if len(p.Statuses) > 0 && !contains(p.Statuses, meta.Status) {
		return false
	}
	if p.OccurredBefore != nil {
		dated, ok := rec.(models.Dated)
		if !ok || !dated.OccurredAt().Before(*p.OccurredBefore) {
			return false
		}
	}
	if p.OccurredOn != nil {
		dated, ok := rec.(models.Dated)
		if !ok || !dated.OccurredAt().Equal(*p.OccurredOn) {
			return false
		}
	}

	return true
}

func contains[T comparable](items []T, v T) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
