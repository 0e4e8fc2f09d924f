package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lzhahn/CountMe-sub003/internal/config"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/store"
	"github.com/lzhahn/CountMe-sub003/models"
)

// OperationQueue is the bounded, deduplicated list of mutations waiting to be
// uploaded. It holds at most one operation per entity, in first-enqueue order.
//
// Enqueue only takes the queue's own mutex, so callers never wait for a drain
// in progress.
type OperationQueue struct {
	mu       sync.Mutex
	ops      []models.QueuedOperation
	seq      uint64
	capacity int

	// persistMu orders snapshots written to the store.
	persistMu sync.Mutex
	store     store.QueueStore

	logger *logger.Logger
}

// ProcessFunc uploads one operation. Returning an error wrapping
// ErrOperationDeferred keeps the operation for the next drain.
type ProcessFunc func(ctx context.Context, op models.QueuedOperation) error

// NewOperationQueue returns an empty queue persisted through queueStore. A
// non-positive capacity selects the default.
func NewOperationQueue(queueStore store.QueueStore, capacity int, logger *logger.Logger) *OperationQueue {
	if capacity <= 0 {
		capacity = config.DefaultQueueCapacity
	}
	return &OperationQueue{capacity: capacity, store: queueStore, logger: logger}
}

// Enqueue adds op, or replaces the pending operation for the same entity in
// place. A pending delete is never overwritten by a create or update; in that
// case op is dropped and Enqueue returns false. An update replacing a pending
// create stays a create.
func (q *OperationQueue) Enqueue(op models.QueuedOperation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.enqueueLocked(op)
}

func (q *OperationQueue) enqueueLocked(op models.QueuedOperation) bool {
	if op.EnqueuedAt.IsZero() {
		op.EnqueuedAt = models.Now()
	}

	if i := q.indexLocked(op.Key()); i >= 0 {
		pending := q.ops[i]
		if pending.Kind == models.OperationDelete && op.Kind != models.OperationDelete {
			q.logger.Debug().
				Str("entity_id", op.EntityID).
				Str("entity_type", string(op.EntityType)).
				Str("kind", string(op.Kind)).
				Msg("dropping mutation for entity with pending delete")
			return false
		}
		if pending.Kind == models.OperationCreate && op.Kind == models.OperationUpdate {
			op.Kind = models.OperationCreate
		}

		q.seq++
		op.Seq = q.seq
		q.ops[i] = op
		return true
	}

	q.seq++
	op.Seq = q.seq
	q.ops = append(q.ops, op)

	if len(q.ops) > q.capacity {
		evicted := q.ops[0]
		q.ops = append(q.ops[:0:0], q.ops[1:]...)
		q.logger.Warn().
			Str("entity_id", evicted.EntityID).
			Str("entity_type", string(evicted.EntityType)).
			Str("kind", string(evicted.Kind)).
			Int("capacity", q.capacity).
			Msg("operation queue full, oldest operation evicted")
	}
	return true
}

func (q *OperationQueue) indexLocked(key models.OperationKey) int {
	for i := range q.ops {
		if q.ops[i].Key() == key {
			return i
		}
	}
	return -1
}

// Len returns the number of pending operations.
func (q *OperationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Snapshot returns a copy of the pending operations in queue order.
func (q *OperationQueue) Snapshot() []models.QueuedOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.QueuedOperation, len(q.ops))
	copy(out, q.ops)
	return out
}

// Pending returns the operation queued for key, if any.
func (q *OperationQueue) Pending(key models.OperationKey) (models.QueuedOperation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i := q.indexLocked(key); i >= 0 {
		return q.ops[i], true
	}
	return models.QueuedOperation{}, false
}

// Remove deletes the operation for key only if it is still the entry with
// sequence number seq. It reports whether something was removed.
func (q *OperationQueue) Remove(key models.OperationKey, seq uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(key)
	if i < 0 || q.ops[i].Seq != seq {
		return false
	}
	q.ops = append(q.ops[:i], q.ops[i+1:]...)
	return true
}

// RemoveEntity deletes whatever operation is queued for key.
func (q *OperationQueue) RemoveEntity(key models.OperationKey) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexLocked(key)
	if i < 0 {
		return false
	}
	q.ops = append(q.ops[:i], q.ops[i+1:]...)
	return true
}

// Drain processes a snapshot of the queue in order. Successful operations are
// removed. Failed ones are removed and reported. Deferred ones stay queued,
// and once ctx is done the remaining operations are deferred without being
// attempted. The resulting queue is persisted at the end of the pass.
func (q *OperationQueue) Drain(ctx context.Context, process ProcessFunc) models.DrainReport {
	var report models.DrainReport

	snapshot := q.Snapshot()
	for i, op := range snapshot {
		if ctx.Err() != nil {
			report.Deferred += len(snapshot) - i
			break
		}

		report.Attempted++
		err := process(ctx, op)
		switch {
		case err == nil:
			q.Remove(op.Key(), op.Seq)
			report.Succeeded++
		case errors.Is(err, ErrOperationDeferred):
			report.Deferred++
		default:
			q.Remove(op.Key(), op.Seq)
			report.Failures = append(report.Failures, models.FailedOperation{
				Operation: op,
				Error:     err.Error(),
				FailedAt:  models.Now(),
			})
			q.logger.Error().Err(err).
				Str("entity_id", op.EntityID).
				Str("entity_type", string(op.EntityType)).
				Str("kind", string(op.Kind)).
				Msg("operation failed permanently")
		}
	}

	if err := q.Persist(context.WithoutCancel(ctx)); err != nil {
		q.logger.Err(err).Msg("persisting operation queue after drain failed")
	}
	return report
}

// Persist writes the current queue through the QueueStore.
func (q *OperationQueue) Persist(ctx context.Context) error {
	if q.store == nil {
		return nil
	}

	q.persistMu.Lock()
	defer q.persistMu.Unlock()

	if err := q.store.SaveQueue(ctx, q.Snapshot()); err != nil {
		return fmt.Errorf("save operation queue: %w", err)
	}
	return nil
}

// Load restores the persisted queue. Stored entries go first; operations
// already in memory are replayed on top of them, so a newer in-memory
// operation replaces a stored one for the same entity. Everything goes
// through Enqueue, so deduplication and the capacity bound hold.
func (q *OperationQueue) Load(ctx context.Context) (int, error) {
	if q.store == nil {
		return 0, nil
	}

	ops, err := q.store.LoadQueue(ctx)
	if err != nil {
		return 0, fmt.Errorf("load operation queue: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	current := q.ops
	q.ops = nil
	for _, op := range ops {
		q.enqueueLocked(op)
	}
	for _, op := range current {
		q.enqueueLocked(op)
	}
	return len(q.ops), nil
}
