// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lzhahn/CountMe-sub003/internal/adapter"
	"github.com/lzhahn/CountMe-sub003/internal/config"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/store"
	"github.com/lzhahn/CountMe-sub003/internal/utils"
	"github.com/lzhahn/CountMe-sub003/models"
	"golang.org/x/sync/errgroup"
)

// maxFailures bounds the permanent-failure list kept for Status.
const maxFailures = 100

type syncEngine struct {
	local    store.LocalStore
	queue    *OperationQueue
	remote   adapter.RemoteStore
	resolver *ConflictResolver
	retry    RetryPolicy
	ids      *utils.UUIDGenerator
	job      SyncJob

	retention     time.Duration
	drainInterval time.Duration
	sweepInterval time.Duration

	// opMu serializes drains, remote change handling, pulls, migrations and
	// sweeps.
	opMu sync.Mutex
	// recMu guards local read-modify-write sequences. It is never held
	// across a network call.
	recMu sync.Mutex

	stateMu          sync.Mutex
	ownerID          string
	running          bool
	syncing          bool
	migrationPending bool
	queueLoaded      bool
	lastSyncAt       time.Time
	lastSweepAt      time.Time
	failures         []models.FailedOperation
	sessionCtx       context.Context
	stop             context.CancelFunc
	done             chan struct{}

	now    func() time.Time
	logger *logger.Logger
}

// NewSyncEngine wires an engine over the given stores. Nothing runs until
// StartSync.
func NewSyncEngine(
	local store.LocalStore,
	queue *OperationQueue,
	remote adapter.RemoteStore,
	syncCfg config.ClientSync,
	workersCfg config.ClientWorkers,
	logger *logger.Logger,
) SyncEngine {
	retentionDays := syncCfg.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	e := &syncEngine{
		local:         local,
		queue:         queue,
		remote:        remote,
		resolver:      NewConflictResolver(logger),
		retry:         NewRetryPolicy(syncCfg),
		ids:           utils.NewUUIDGenerator(),
		retention:     time.Duration(retentionDays) * 24 * time.Hour,
		drainInterval: workersCfg.DrainInterval,
		sweepInterval: workersCfg.SweepInterval,
		now:           models.Now,
		logger:        logger,
	}
	if e.sweepInterval <= 0 {
		e.sweepInterval = config.DefaultSweepInterval
	}
	e.job = NewSyncJob(e.tick)

	return e
}

// session returns the active owner and session context.
func (e *syncEngine) session() (string, context.Context, bool) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	if !e.running {
		return "", nil, false
	}
	return e.ownerID, e.sessionCtx, true
}

// ── Local mutations ─────────────────────────────────────────────────────────

// RecordMutation implements SyncEngine.
func (e *syncEngine) RecordMutation(ctx context.Context, rec models.SyncableRecord, kind models.OperationKind) error {
	if rec == nil {
		return fmt.Errorf("%w: %w", ErrLocalWrite, ErrNilRecord)
	}

	owner, _, active := e.session()
	meta := rec.Meta()

	if active && meta.OwnerID != "" && meta.OwnerID != owner {
		e.logger.Warn().
			Str("entity_id", meta.ID).
			Str("entity_type", string(rec.EntityType())).
			Str("owner_id", owner).
			Str("record_owner_id", meta.OwnerID).
			Msg("rejecting mutation of record owned by another user")
		return fmt.Errorf("%w: %w", ErrLocalWrite, ErrOwnershipMismatch)
	}

	e.recMu.Lock()
	defer e.recMu.Unlock()

	if active {
		rec.AssignOwner(owner)
	}
	if log, ok := rec.(*models.DailyLog); ok && kind == models.OperationCreate {
		var err error
		if kind, err = e.keyDailyLog(ctx, log); err != nil {
			return fmt.Errorf("%w: create %s/%s: %w", ErrLocalWrite, rec.EntityType(), meta.ID, err)
		}
	}
	if meta.ID == "" {
		if kind != models.OperationCreate {
			return fmt.Errorf("%w: %s without id", ErrLocalWrite, kind)
		}
		meta.ID = e.ids.Generate()
	}
	var base models.Document
	if active && kind == models.OperationUpdate && rec.EntityType() == models.EntityDailyLog {
		base = e.mutationBase(ctx, models.OperationKey{EntityID: meta.ID, EntityType: rec.EntityType()})
	}
	meta.LastModified = e.now()

	var err error
	switch kind {
	case models.OperationCreate:
		meta.Status, meta.Deleted = models.StatusPendingUpload, false
		err = e.local.Create(ctx, rec)
	case models.OperationUpdate:
		meta.Status = models.StatusPendingUpload
		err = e.local.Update(ctx, rec)
	case models.OperationDelete:
		if !active && meta.OwnerID == "" {
			// never left the device
			err = e.local.Delete(ctx, rec.EntityType(), meta.ID)
			if errors.Is(err, store.ErrRecordNotFound) {
				err = nil
			}
			break
		}
		meta.Status, meta.Deleted = models.StatusPendingDelete, true
		err = e.local.Update(ctx, rec)
	default:
		return fmt.Errorf("%w: %w %q", ErrLocalWrite, ErrUnknownMutation, kind)
	}
	if err != nil {
		return fmt.Errorf("%w: %s %s/%s: %w", ErrLocalWrite, kind, rec.EntityType(), meta.ID, err)
	}

	if !active {
		return nil
	}

	e.queue.Enqueue(models.QueuedOperation{
		EntityID:   meta.ID,
		EntityType: rec.EntityType(),
		Kind:       kind,
		EnqueuedAt: meta.LastModified,
		Payload:    rec.ToRemoteDocument(),
		Base:       base,
	})
	e.job.Trigger()
	return nil
}

// mutationBase returns the last synced version of a record about to change:
// the base of an operation still queued for it, or the stored record while
// it is synced. Requires recMu.
func (e *syncEngine) mutationBase(ctx context.Context, key models.OperationKey) models.Document {
	if op, ok := e.queue.Pending(key); ok {
		return op.Base
	}

	stored, err := e.local.Read(ctx, key.EntityType, key.EntityID)
	if err != nil || stored.Meta().Status != models.StatusSynced {
		return nil
	}
	return stored.ToRemoteDocument()
}

// keyDailyLog gives a new daily log the id of its day. When the day already
// has a log, the new items are folded into it and the create becomes an
// update. Requires recMu.
func (e *syncEngine) keyDailyLog(ctx context.Context, log *models.DailyLog) (models.OperationKind, error) {
	log.ID = models.DailyLogID(log.OwnerID, log.Date)

	existing, err := e.local.Read(ctx, models.EntityDailyLog, log.ID)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return models.OperationCreate, nil
	case err != nil:
		return "", err
	}

	prev, ok := existing.(*models.DailyLog)
	if ok && !prev.Deleted {
		foldLineItems(log, prev)
	}
	if ok && prev.Deleted {
		// the day is logged again before its deletion went out
		e.queue.RemoveEntity(models.OperationKey{EntityID: log.ID, EntityType: models.EntityDailyLog})
	}
	return models.OperationUpdate, nil
}

// foldLineItems adds the items of from missing in into, by id.
func foldLineItems(into, from *models.DailyLog) {
	into.FoodEntries = unionByID(into.FoodEntries, from.FoodEntries,
		func(f models.FoodEntry) string { return f.ID })
	into.WorkoutEntries = unionByID(into.WorkoutEntries, from.WorkoutEntries,
		func(w models.WorkoutEntry) string { return w.ID })
	into.Recalculate()
}

// ── Session lifecycle ───────────────────────────────────────────────────────

// StartSync implements SyncEngine.
func (e *syncEngine) StartSync(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return ErrNoOwner
	}

	e.loadQueue(ctx)

	e.stateMu.Lock()
	if e.running && e.ownerID == ownerID {
		e.stateMu.Unlock()
		return nil
	}
	if e.running {
		e.stateMu.Unlock()
		e.StopSync()
		e.stateMu.Lock()
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	e.ownerID = ownerID
	e.running = true
	e.sessionCtx = sessionCtx
	e.stop = cancel
	e.done = make(chan struct{})
	done := e.done
	e.stateMu.Unlock()

	g, gctx := errgroup.WithContext(sessionCtx)
	for _, d := range models.Entities() {
		g.Go(func() error {
			e.subscriptionLoop(gctx, d, ownerID)
			return nil
		})
	}
	g.Go(func() error {
		e.initialSync(gctx)
		return nil
	})

	e.job.Start(sessionCtx, e.drainInterval)

	go func() {
		_ = g.Wait()
		close(done)
	}()

	e.logger.Info().Str("owner_id", ownerID).Msg("sync started")
	return nil
}

// StopSync implements SyncEngine.
func (e *syncEngine) StopSync() {
	e.stateMu.Lock()
	if !e.running {
		e.stateMu.Unlock()
		return
	}
	cancel, done, owner := e.stop, e.done, e.ownerID
	e.running = false
	e.ownerID = ""
	e.sessionCtx = nil
	e.stop = nil
	e.stateMu.Unlock()

	cancel()
	e.job.Stop()
	<-done

	if err := e.queue.Persist(context.Background()); err != nil {
		e.logger.Err(err).Msg("persisting operation queue on stop failed")
	}
	e.logger.Info().Str("owner_id", owner).Int("pending", e.queue.Len()).Msg("sync stopped")
}

// loadQueue restores the persisted queue once per engine. Operations queued
// before that, e.g. by a migration, are kept on top of the restored ones.
func (e *syncEngine) loadQueue(ctx context.Context) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.queueLoaded {
		return
	}
	e.queueLoaded = true

	n, err := e.queue.Load(ctx)
	if err != nil {
		e.logger.Err(err).Msg("restoring operation queue failed, keeping in-memory operations")
		return
	}
	if n > 0 {
		e.logger.Info().Int("pending", n).Msg("operation queue restored")
	}
}

// initialSync runs once per session: pending migration, drain, pull and a
// retention sweep.
func (e *syncEngine) initialSync(ctx context.Context) {
	e.tick(ctx)
	if ctx.Err() != nil {
		return
	}

	owner, _, ok := e.session()
	if !ok {
		return
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()
	e.pullAll(ctx, owner)
}

// tick is the periodic job body.
func (e *syncEngine) tick(ctx context.Context) {
	owner, _, ok := e.session()
	if !ok {
		return
	}

	if e.needsMigration(ctx) {
		if _, err := e.MigrateLocalData(ctx, owner); err != nil {
			e.logger.Warn().Err(err).Str("owner_id", owner).Msg("migration still incomplete")
		}
	}

	e.drain(ctx)

	e.stateMu.Lock()
	sweepDue := e.now().Sub(e.lastSweepAt) >= e.sweepInterval
	e.stateMu.Unlock()
	if sweepDue && ctx.Err() == nil {
		if _, err := e.SweepExpired(ctx); err != nil {
			e.logger.Err(err).Msg("retention sweep failed")
		}
	}
}

// needsMigration reports whether a migration ran incomplete or unowned
// records appeared since.
func (e *syncEngine) needsMigration(ctx context.Context) bool {
	e.stateMu.Lock()
	pending := e.migrationPending
	e.stateMu.Unlock()
	if pending {
		return true
	}

	for _, d := range models.Entities() {
		recs, err := e.local.Query(ctx, store.Predicate{EntityType: d.Type, Owners: []string{""}, IncludeDeleted: true})
		if err != nil {
			e.logger.Err(err).Str("entity_type", string(d.Type)).Msg("looking for unowned records failed")
			continue
		}
		if len(recs) > 0 {
			return true
		}
	}
	return false
}

// ── Upload path ─────────────────────────────────────────────────────────────

func (e *syncEngine) drain(ctx context.Context) models.DrainReport {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.setSyncing(true)
	defer e.setSyncing(false)

	report := e.queue.Drain(ctx, e.processOperation)

	e.stateMu.Lock()
	e.lastSyncAt = e.now()
	e.failures = append(e.failures, report.Failures...)
	if over := len(e.failures) - maxFailures; over > 0 {
		e.failures = append([]models.FailedOperation(nil), e.failures[over:]...)
	}
	e.stateMu.Unlock()

	if report.Attempted > 0 {
		e.logger.Debug().
			Int("attempted", report.Attempted).
			Int("succeeded", report.Succeeded).
			Int("deferred", report.Deferred).
			Int("failed", len(report.Failures)).
			Msg("operation queue drained")
	}
	return report
}

func (e *syncEngine) setSyncing(v bool) {
	e.stateMu.Lock()
	e.syncing = v
	e.stateMu.Unlock()
}

// processOperation uploads one queued operation. Operations belonging to
// another owner wait for that owner's session.
func (e *syncEngine) processOperation(ctx context.Context, op models.QueuedOperation) error {
	owner, _, ok := e.session()
	if !ok {
		return fmt.Errorf("%w: %w", ErrOperationDeferred, ErrSyncNotStarted)
	}
	if opOwner, _ := op.Payload.OptionalString(models.FieldOwnerID); opOwner != "" && opOwner != owner {
		return fmt.Errorf("%w: operation belongs to another owner", ErrOperationDeferred)
	}

	collection, err := models.CollectionOf(op.EntityType)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPermanentFailure, err)
	}

	var sent models.Document
	switch op.Kind {
	case models.OperationDelete:
		err = e.retry.Do(ctx, func(ctx context.Context) error {
			return e.remote.DeleteDocument(ctx, collection, op.EntityID)
		})
		if errors.Is(err, adapter.ErrNotFound) {
			err = nil
		}
	default:
		var doc models.Document
		if doc, err = e.mergeBeforeUpload(ctx, collection, op); err != nil {
			return err
		}
		err = e.retry.Do(ctx, func(ctx context.Context) error {
			return e.remote.PutDocument(ctx, collection, op.EntityID, uploadDocument(doc))
		})
		sent = doc
	}
	if err != nil {
		return err
	}

	e.markUploaded(context.WithoutCancel(ctx), op, sent)
	return nil
}

// mergeBeforeUpload folds the remote copy of a daily log into the upload, so
// items another device logged since the last pull are not overwritten. Other
// types upload as queued.
func (e *syncEngine) mergeBeforeUpload(ctx context.Context, collection string, op models.QueuedOperation) (models.Document, error) {
	if op.EntityType != models.EntityDailyLog {
		return op.Payload, nil
	}

	var remoteDoc models.Document
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		var gerr error
		remoteDoc, gerr = e.remote.GetDocument(ctx, collection, op.EntityID)
		return gerr
	})
	switch {
	case errors.Is(err, adapter.ErrNotFound):
		return op.Payload, nil
	case err != nil:
		return nil, err
	case models.Equivalent(remoteDoc, op.Payload):
		return op.Payload, nil
	}

	local, err := models.DailyLogFromDocument(op.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPermanentFailure, err)
	}
	remote, err := models.DailyLogFromDocument(remoteDoc)
	if err != nil || remote.OwnerID != local.OwnerID || remote.Deleted {
		// nothing usable to merge with, the upload replaces it
		return op.Payload, nil
	}

	var base models.SyncableRecord
	if op.Base != nil {
		if b, berr := models.DailyLogFromDocument(op.Base); berr == nil {
			base = b
		}
	}
	outcome, err := e.resolver.ResolveWithBase(local, remote, base)
	if err != nil || outcome.Deleted {
		return op.Payload, nil
	}
	return outcome.Record.ToRemoteDocument(), nil
}

// markUploaded records a successful upload locally. A record mutated again
// since the operation was queued is left alone; its newer operation is still
// pending. sent is the document actually uploaded; it replaces the local copy
// when a merge changed it.
func (e *syncEngine) markUploaded(ctx context.Context, op models.QueuedOperation, sent models.Document) {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	rec, err := e.local.Read(ctx, op.EntityType, op.EntityID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return
	}
	if err != nil {
		e.logger.Err(err).Str("entity_id", op.EntityID).Msg("reading uploaded record failed")
		return
	}

	meta := rec.Meta()
	if op.Kind == models.OperationDelete {
		if meta.Deleted {
			if err = e.local.Delete(ctx, op.EntityType, op.EntityID); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
				e.logger.Err(err).Str("entity_id", op.EntityID).Msg("removing confirmed tombstone failed")
			}
		}
		return
	}

	if meta.Status == models.StatusSynced || !models.Equivalent(rec.ToRemoteDocument(), op.Payload) {
		return
	}
	if sent != nil && !models.Equivalent(sent, op.Payload) {
		merged, derr := models.DecodeDocument(op.EntityType, sent)
		if derr != nil {
			e.logger.Err(derr).Str("entity_id", op.EntityID).Msg("decoding merged upload failed")
			return
		}
		rec, meta = merged, merged.Meta()
	}
	meta.Status = models.StatusSynced
	if err = e.local.Update(ctx, rec); err != nil {
		e.logger.Err(err).Str("entity_id", op.EntityID).Msg("marking record synced failed")
	}
}

// ── Status ──────────────────────────────────────────────────────────────────

// Status implements SyncEngine.
func (e *syncEngine) Status() models.EngineStatus {
	pending := e.queue.Len()

	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	return models.EngineStatus{
		OwnerID:          e.ownerID,
		Running:          e.running,
		Syncing:          e.syncing,
		MigrationPending: e.migrationPending,
		Pending:          pending,
		LastSyncAt:       e.lastSyncAt,
		Failures:         append([]models.FailedOperation(nil), e.failures...),
	}
}

// Failures implements SyncEngine.
func (e *syncEngine) Failures() []models.FailedOperation {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return append([]models.FailedOperation(nil), e.failures...)
}

// RetryFailed implements SyncEngine. Each failed operation is rebuilt from
// the current local record, so a record changed since the failure is
// uploaded in its latest form.
func (e *syncEngine) RetryFailed(ctx context.Context) (int, error) {
	owner, _, ok := e.session()
	if !ok {
		return 0, ErrSyncNotStarted
	}

	e.stateMu.Lock()
	failed := e.failures
	e.failures = nil
	e.stateMu.Unlock()

	requeued := 0
	for _, f := range failed {
		op := f.Operation
		rec, err := e.local.Read(ctx, op.EntityType, op.EntityID)
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			if op.Kind != models.OperationDelete {
				continue
			}
		case err != nil:
			e.logger.Err(err).Str("entity_id", op.EntityID).Msg("reading failed operation record")
			continue
		default:
			if o := rec.Meta().OwnerID; o != "" && o != owner {
				continue
			}
			op.Payload = rec.ToRemoteDocument()
			if rec.Meta().Deleted {
				op.Kind = models.OperationDelete
			}
		}

		op.EnqueuedAt = e.now()
		if e.queue.Enqueue(op) {
			requeued++
		}
	}

	if requeued > 0 {
		e.job.Trigger()
	}
	return requeued, nil
}

// uploadDocument is the form a record takes on the remote side, where it is
// always synced by definition.
func uploadDocument(doc models.Document) models.Document {
	out := doc.Clone()
	if out == nil {
		out = models.Document{}
	}
	out[models.FieldSyncStatus] = string(models.StatusSynced)
	return out
}
