package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lzhahn/CountMe-sub003/internal/adapter"
	"github.com/lzhahn/CountMe-sub003/internal/store"
	"github.com/lzhahn/CountMe-sub003/models"
)

// ── Remote changes ──────────────────────────────────────────────────────────

// HandleRemoteChange implements SyncEngine. Malformed or foreign documents are
// logged and discarded; a panic while applying a change is recovered.
func (e *syncEngine) HandleRemoteChange(ctx context.Context, change models.DocumentChange) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Any("panic", r).
				Str("collection", change.Collection).
				Str("entity_id", change.ID).
				Msg("recovered while applying remote change")
		}
	}()

	owner, _, ok := e.session()
	if !ok {
		return
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.applyRemoteChange(ctx, owner, change)
}

// applyRemoteChange requires opMu. It reports whether the change was accepted.
func (e *syncEngine) applyRemoteChange(ctx context.Context, owner string, change models.DocumentChange) bool {
	desc, err := models.DescribeCollection(change.Collection)
	if err != nil {
		e.logger.Warn().Err(err).Str("entity_id", change.ID).Msg("discarding change for unknown collection")
		return false
	}

	if change.Type == models.ChangeRemoved {
		if change.ID == "" {
			e.logger.Warn().Str("collection", change.Collection).Msg("discarding removal without id")
			return false
		}
		e.applyRemoteDeletion(ctx, owner, desc.Type, change.ID)
		return true
	}

	remote, err := desc.Decode(change.Document)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("collection", change.Collection).
			Str("entity_id", change.ID).
			Msg("discarding malformed remote document")
		return false
	}

	rm := remote.Meta()
	if change.ID != "" && rm.ID != change.ID {
		e.logger.Warn().
			Str("collection", change.Collection).
			Str("entity_id", change.ID).
			Str("document_id", rm.ID).
			Msg("discarding remote document with mismatched id")
		return false
	}
	if rm.OwnerID != owner {
		e.logger.Warn().
			Str("collection", change.Collection).
			Str("entity_id", rm.ID).
			Str("owner_id", owner).
			Str("document_owner_id", rm.OwnerID).
			Msg("security: discarding remote document owned by another user")
		return false
	}

	if rm.Deleted {
		e.applyRemoteDeletion(ctx, owner, desc.Type, rm.ID)
		return true
	}

	e.reconcile(ctx, owner, desc.Collection, remote)
	return true
}

// applyRemoteDeletion removes the local copy of a record deleted remotely.
// Deletion wins over any pending local change.
func (e *syncEngine) applyRemoteDeletion(ctx context.Context, owner string, entityType models.EntityType, id string) {
	local := context.WithoutCancel(ctx)

	e.recMu.Lock()
	defer e.recMu.Unlock()

	rec, err := e.local.Read(local, entityType, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return
	}
	if err != nil {
		e.logger.Err(err).Str("entity_id", id).Msg("reading record for remote deletion failed")
		return
	}
	if o := rec.Meta().OwnerID; o != "" && o != owner {
		return
	}

	e.queue.RemoveEntity(models.OperationKey{EntityID: id, EntityType: entityType})
	if err = e.local.Delete(local, entityType, id); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		e.logger.Err(err).Str("entity_id", id).Msg("applying remote deletion failed")
		return
	}
	e.logger.Debug().Str("entity_id", id).Str("entity_type", string(entityType)).Msg("remote deletion applied")
}

// reconcile brings the local copy in line with a live remote document,
// resolving a conflict when both differ. A resolved version that differs from
// the remote one is uploaded; if that fails it is queued instead.
func (e *syncEngine) reconcile(ctx context.Context, owner, collection string, remote models.SyncableRecord) {
	rm := remote.Meta()
	key := models.OperationKey{EntityID: rm.ID, EntityType: remote.EntityType()}
	remoteDoc := remote.ToRemoteDocument()

	resolvedDoc, upload := e.reconcileLocal(context.WithoutCancel(ctx), owner, key, remote, remoteDoc)
	if !upload {
		return
	}

	err := e.retry.Do(ctx, func(ctx context.Context) error {
		return e.remote.PutDocument(ctx, collection, rm.ID, uploadDocument(resolvedDoc))
	})
	if err == nil {
		return
	}

	e.logger.Warn().Err(err).Str("entity_id", rm.ID).Msg("uploading resolved record failed, queueing it")
	e.requeueResolved(context.WithoutCancel(ctx), key, resolvedDoc, remoteDoc)
}

// reconcileLocal applies the local half of reconcile under recMu. It returns
// the resolved document when it still has to be uploaded.
func (e *syncEngine) reconcileLocal(
	ctx context.Context,
	owner string,
	key models.OperationKey,
	remote models.SyncableRecord,
	remoteDoc models.Document,
) (models.Document, bool) {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	rm := remote.Meta()
	current, err := e.local.Read(ctx, key.EntityType, key.EntityID)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		if incoming, ok := remote.(*models.DailyLog); ok {
			if sibling := e.sameDayLog(ctx, owner, incoming); sibling != nil {
				return e.reconcileSameDay(ctx, owner, sibling, incoming, remoteDoc)
			}
		}
		rm.Status = models.StatusSynced
		if err = e.local.Create(ctx, remote); err != nil {
			e.logger.Err(err).Str("entity_id", rm.ID).Msg("storing remote record failed")
		}
		return nil, false
	case err != nil:
		e.logger.Err(err).Str("entity_id", rm.ID).Msg("reading local record for remote change failed")
		return nil, false
	}

	cm := current.Meta()
	if cm.OwnerID != "" && cm.OwnerID != owner {
		e.logger.Warn().Str("entity_id", rm.ID).Msg("local record with same id belongs to another user")
		return nil, false
	}

	if models.Equivalent(current.ToRemoteDocument(), remoteDoc) {
		if cm.Status != models.StatusSynced {
			cm.Status = models.StatusSynced
			if err = e.local.Update(ctx, current); err != nil {
				e.logger.Err(err).Str("entity_id", rm.ID).Msg("marking record synced failed")
			}
		}
		if op, ok := e.queue.Pending(key); ok && models.Equivalent(op.Payload, remoteDoc) {
			e.queue.Remove(key, op.Seq)
		}
		return nil, false
	}

	op, pending := e.queue.Pending(key)
	if !pending && cm.Status == models.StatusSynced {
		// no local change to keep
		rm.Status = models.StatusSynced
		if err = e.local.Update(ctx, remote); err != nil {
			e.logger.Err(err).Str("entity_id", rm.ID).Msg("storing remote record failed")
		}
		return nil, false
	}

	var base models.SyncableRecord
	if op.Base != nil {
		if base, err = models.DecodeDocument(key.EntityType, op.Base); err != nil {
			e.logger.Warn().Err(err).Str("entity_id", rm.ID).Msg("ignoring undecodable merge base")
			base = nil
		}
	}
	outcome, err := e.resolver.ResolveWithBase(current, remote, base)
	if err != nil {
		e.logger.Err(err).Str("entity_id", rm.ID).Msg("conflict resolution fell back to deletion")
	}

	if outcome.Deleted {
		// the remote copy is live, so the deletion has to travel up
		cm.Deleted, cm.Status, cm.LastModified = true, models.StatusPendingDelete, e.now()
		cm.AssignOwner(owner)
		if err = e.local.Update(ctx, current); err != nil {
			e.logger.Err(err).Str("entity_id", rm.ID).Msg("storing resolved tombstone failed")
		}
		e.queue.Enqueue(models.QueuedOperation{
			EntityID:   rm.ID,
			EntityType: key.EntityType,
			Kind:       models.OperationDelete,
			Payload:    current.ToRemoteDocument(),
		})
		e.job.Trigger()
		return nil, false
	}

	resolved := outcome.Record
	resolved.AssignOwner(owner)
	resolved.Meta().Status = models.StatusSynced
	if err = e.local.Update(ctx, resolved); err != nil {
		e.logger.Err(err).Str("entity_id", rm.ID).Msg("storing resolved record failed")
		return nil, false
	}
	e.queue.RemoveEntity(key)

	resolvedDoc := resolved.ToRemoteDocument()
	return resolvedDoc, !models.Equivalent(resolvedDoc, remoteDoc)
}

// sameDayLog finds a live local log of the owner for the day of incoming that
// is stored under another id.
func (e *syncEngine) sameDayLog(ctx context.Context, owner string, incoming *models.DailyLog) *models.DailyLog {
	day := incoming.Date
	recs, err := e.local.Query(ctx, store.Predicate{
		EntityType: models.EntityDailyLog,
		Owners:     []string{owner},
		OccurredOn: &day,
	})
	if err != nil {
		e.logger.Err(err).Str("entity_id", incoming.ID).Msg("looking up local log of the same day failed")
		return nil
	}

	for _, rec := range recs {
		if l, ok := rec.(*models.DailyLog); ok && l.ID != incoming.ID {
			return l
		}
	}
	return nil
}

// sameDayID picks the id two logs of one day end up under: the derived id
// when either carries it, otherwise the smaller one. Every device picks the
// same.
func sameDayID(owner string, day time.Time, a, b string) string {
	if derived := models.DailyLogID(owner, day); a == derived || b == derived {
		return derived
	}
	return min(a, b)
}

// reconcileSameDay merges a remote log into the local log of the same day
// kept under another id. The merged log lives on under the agreed id and the
// other id is deleted on both sides. Requires recMu.
func (e *syncEngine) reconcileSameDay(
	ctx context.Context,
	owner string,
	sibling, incoming *models.DailyLog,
	remoteDoc models.Document,
) (models.Document, bool) {
	keepID := sameDayID(owner, incoming.Date, sibling.ID, incoming.ID)
	log := e.logger.With().
		Str("entity_id", keepID).
		Str("local_id", sibling.ID).
		Str("remote_id", incoming.ID).
		Logger()

	if keepID == incoming.ID {
		retired := deleteOperation(sibling)
		sibling.ID = keepID

		outcome, err := e.resolver.Resolve(sibling, incoming)
		if err != nil || outcome.Deleted {
			log.Err(err).Msg("merging logs of the same day failed")
			return nil, false
		}
		resolved := outcome.Record
		resolved.AssignOwner(owner)
		resolved.Meta().Status = models.StatusSynced
		if err = e.local.Create(ctx, resolved); err != nil {
			log.Err(err).Msg("storing merged log failed")
			return nil, false
		}

		e.retireLog(ctx, retired)
		log.Info().Msg("local log moved under the remote id of its day")

		resolvedDoc := resolved.ToRemoteDocument()
		return resolvedDoc, !models.Equivalent(resolvedDoc, remoteDoc)
	}

	duplicate := *incoming
	duplicate.ID = keepID
	outcome, err := e.resolver.Resolve(sibling, &duplicate)
	if err != nil || outcome.Deleted {
		log.Err(err).Msg("merging logs of the same day failed")
		return nil, false
	}
	resolved := outcome.Record
	resolved.AssignOwner(owner)
	resolved.Meta().Status = models.StatusPendingUpload
	if err = e.local.Update(ctx, resolved); err != nil {
		log.Err(err).Msg("storing merged log failed")
		return nil, false
	}

	e.queue.Enqueue(models.QueuedOperation{
		EntityID:   keepID,
		EntityType: models.EntityDailyLog,
		Kind:       models.OperationUpdate,
		Payload:    resolved.ToRemoteDocument(),
	})
	e.queue.Enqueue(deleteOperation(incoming))
	e.job.Trigger()
	log.Info().Msg("remote log folded into the local log of its day")
	return nil, false
}

// retireLog drops a local log that was merged under another id and queues
// the deletion of its remote copy. Requires recMu.
func (e *syncEngine) retireLog(ctx context.Context, op models.QueuedOperation) {
	e.queue.RemoveEntity(op.Key())
	if err := e.local.Delete(ctx, op.EntityType, op.EntityID); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		e.logger.Err(err).Str("entity_id", op.EntityID).Msg("removing merged log failed")
		return
	}
	e.queue.Enqueue(op)
	e.job.Trigger()
}

func deleteOperation(rec models.SyncableRecord) models.QueuedOperation {
	return models.QueuedOperation{
		EntityID:   rec.Meta().ID,
		EntityType: rec.EntityType(),
		Kind:       models.OperationDelete,
		Payload:    rec.ToRemoteDocument(),
	}
}

// requeueResolved puts a resolved record whose upload failed back on the
// queue, unless it was edited in the meantime. The remote version it was
// resolved against becomes the merge base.
func (e *syncEngine) requeueResolved(ctx context.Context, key models.OperationKey, resolvedDoc, remoteDoc models.Document) {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	rec, err := e.local.Read(ctx, key.EntityType, key.EntityID)
	if err != nil || !models.Equivalent(rec.ToRemoteDocument(), resolvedDoc) {
		return
	}

	rec.Meta().Status = models.StatusPendingUpload
	if err = e.local.Update(ctx, rec); err != nil {
		e.logger.Err(err).Str("entity_id", key.EntityID).Msg("marking resolved record pending failed")
	}
	e.queue.Enqueue(models.QueuedOperation{
		EntityID:   key.EntityID,
		EntityType: key.EntityType,
		Kind:       models.OperationUpdate,
		Payload:    rec.ToRemoteDocument(),
		Base:       remoteDoc,
	})
}

// subscriptionLoop keeps a change feed open for one collection until ctx is
// done. A dropped feed is reopened after the retry delay, followed by a pull
// to pick up changes missed in between.
func (e *syncEngine) subscriptionLoop(ctx context.Context, desc models.EntityDescriptor, owner string) {
	log := e.logger.With().Str("collection", desc.Collection).Logger()
	failures := 0
	reconnect := false

	for ctx.Err() == nil {
		changes, err := e.remote.Subscribe(ctx, desc.Collection, owner)
		if err == nil {
			if reconnect {
				e.opMu.Lock()
				e.pullCollection(ctx, desc, owner)
				e.opMu.Unlock()
			}
			failures = 0
			for change := range changes {
				e.HandleRemoteChange(ctx, change)
			}
			if ctx.Err() != nil {
				return
			}
			log.Warn().Msg("change feed dropped, reopening")
		} else if ctx.Err() == nil {
			log.Warn().Err(err).Msg("opening change feed failed")
		}

		reconnect = true
		failures++
		t := time.NewTimer(e.retry.Delay(failures))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// ── Pull ────────────────────────────────────────────────────────────────────

// ForceSyncNow implements SyncEngine.
func (e *syncEngine) ForceSyncNow(ctx context.Context) (models.SyncReport, error) {
	owner, sessionCtx, ok := e.session()
	if !ok {
		return models.SyncReport{}, ErrSyncNotStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopAfter := context.AfterFunc(sessionCtx, cancel)
	defer stopAfter()

	var report models.SyncReport
	report.Drain = e.drain(ctx)

	e.opMu.Lock()
	report.Pulled, report.RemovedLocally, report.PullErrors = e.pullAll(ctx, owner)
	e.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("forced sync interrupted: %w", err)
	}
	return report, nil
}

// pullAll requires opMu.
func (e *syncEngine) pullAll(ctx context.Context, owner string) (pulled, removed, failed int) {
	for _, desc := range models.Entities() {
		if ctx.Err() != nil {
			return
		}
		p, r, err := e.pullCollection(ctx, desc, owner)
		pulled += p
		removed += r
		if err != nil {
			failed++
		}
	}

	e.stateMu.Lock()
	e.lastSyncAt = e.now()
	e.stateMu.Unlock()
	return
}

// pullCollection applies every remote document of one collection as a change
// event. Synced local records missing from the remote side are treated as
// remote deletions. Requires opMu.
func (e *syncEngine) pullCollection(ctx context.Context, desc models.EntityDescriptor, owner string) (pulled, removed int, err error) {
	var docs []models.Document
	err = e.retry.Do(ctx, func(ctx context.Context) error {
		var qerr error
		docs, qerr = e.remote.QueryByOwner(ctx, desc.Collection, owner)
		return qerr
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("collection", desc.Collection).Msg("pulling collection failed")
		return 0, 0, err
	}

	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		id, _ := doc.OptionalString(models.FieldID)
		if e.applyRemoteChange(ctx, owner, models.DocumentChange{
			Type:       models.ChangeModified,
			Collection: desc.Collection,
			ID:         id,
			Document:   doc,
		}) {
			pulled++
		}
		if id != "" {
			seen[id] = struct{}{}
		}
	}

	synced, err := e.local.Query(context.WithoutCancel(ctx), store.Predicate{
		EntityType: desc.Type,
		Owners:     []string{owner},
		Statuses:   []models.SyncStatus{models.StatusSynced},
	})
	if err != nil {
		e.logger.Err(err).Str("collection", desc.Collection).Msg("listing synced records failed")
		return pulled, 0, err
	}
	for _, rec := range synced {
		if _, ok := seen[rec.Meta().ID]; ok {
			continue
		}
		e.applyRemoteDeletion(ctx, owner, desc.Type, rec.Meta().ID)
		removed++
	}

	return pulled, removed, nil
}

// ── Migration ───────────────────────────────────────────────────────────────

// MigrateLocalData implements SyncEngine. The remote store decides what is
// already migrated: a record whose remote copy is equivalent is only marked
// synced, so an interrupted run can simply be repeated.
func (e *syncEngine) MigrateLocalData(ctx context.Context, ownerID string) (models.MigrationReport, error) {
	if ownerID == "" {
		return models.MigrationReport{}, ErrNoOwner
	}

	e.loadQueue(ctx)

	e.opMu.Lock()
	defer e.opMu.Unlock()

	report := models.MigrationReport{OwnerID: ownerID}
	for _, desc := range models.Entities() {
		recs, err := e.local.Query(ctx, store.Predicate{
			EntityType:     desc.Type,
			Owners:         []string{"", ownerID},
			IncludeDeleted: true,
		})
		if err != nil {
			e.logger.Err(err).Str("entity_type", string(desc.Type)).Msg("listing records to migrate failed")
			report.Failed++
			continue
		}

		for _, rec := range recs {
			if rec.Meta().OwnerID == ownerID && rec.Meta().Status == models.StatusSynced {
				continue
			}
			if err = e.migrateRecord(ctx, desc, ownerID, rec, &report); err != nil {
				report.Failed++
				e.logger.Warn().Err(err).
					Str("entity_id", rec.Meta().ID).
					Str("entity_type", string(desc.Type)).
					Msg("record migration failed")
			}
		}
	}

	e.stateMu.Lock()
	e.migrationPending = report.Failed > 0
	e.stateMu.Unlock()

	e.logger.Info().
		Str("owner_id", ownerID).
		Int("claimed", report.Claimed).
		Int("uploaded", report.Uploaded).
		Int("deleted", report.Deleted).
		Int("already_present", report.AlreadyPresent).
		Int("failed", report.Failed).
		Msg("local data migration finished")

	if report.Failed > 0 {
		return report, fmt.Errorf("%w: %d record(s) still pending", ErrMigrationIncomplete, report.Failed)
	}
	return report, nil
}

func (e *syncEngine) migrateRecord(
	ctx context.Context,
	desc models.EntityDescriptor,
	ownerID string,
	rec models.SyncableRecord,
	report *models.MigrationReport,
) error {
	local := context.WithoutCancel(ctx)
	meta := rec.Meta()

	if meta.OwnerID == "" {
		e.recMu.Lock()
		rec.AssignOwner(ownerID)
		if meta.Status == models.StatusSynced {
			meta.Status = models.StatusPendingUpload
		}
		var err error
		if l, ok := rec.(*models.DailyLog); ok {
			err = e.claimDailyLog(local, l)
		} else {
			err = e.local.Update(local, rec)
		}
		e.recMu.Unlock()
		if err != nil {
			return fmt.Errorf("claiming record: %w", err)
		}
		report.Claimed++
	}
	key := models.OperationKey{EntityID: meta.ID, EntityType: desc.Type}

	if meta.Deleted {
		err := e.retry.Do(ctx, func(ctx context.Context) error {
			return e.remote.DeleteDocument(ctx, desc.Collection, meta.ID)
		})
		if err != nil && !errors.Is(err, adapter.ErrNotFound) {
			return err
		}

		e.recMu.Lock()
		defer e.recMu.Unlock()
		e.queue.RemoveEntity(key)
		if err = e.local.Delete(local, desc.Type, meta.ID); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("removing migrated tombstone: %w", err)
		}
		report.Deleted++
		return nil
	}

	var remoteDoc models.Document
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		var gerr error
		remoteDoc, gerr = e.remote.GetDocument(ctx, desc.Collection, meta.ID)
		return gerr
	})
	switch {
	case errors.Is(err, adapter.ErrNotFound):
		remoteDoc = nil
	case err != nil:
		return fmt.Errorf("checking remote copy: %w", err)
	}

	doc := rec.ToRemoteDocument()
	if remoteDoc != nil {
		if models.Equivalent(remoteDoc, doc) {
			e.markMigrated(local, key, doc)
			report.AlreadyPresent++
			return nil
		}

		remote, derr := desc.Decode(remoteDoc)
		if derr == nil && remote.Meta().OwnerID == ownerID {
			e.reconcile(ctx, ownerID, desc.Collection, remote)
			report.Uploaded++
			return nil
		}
		// an unreadable or foreign remote copy is overwritten below
	}

	err = e.retry.Do(ctx, func(ctx context.Context) error {
		return e.remote.PutDocument(ctx, desc.Collection, meta.ID, uploadDocument(doc))
	})
	if err != nil {
		return err
	}

	e.markMigrated(local, key, doc)
	report.Uploaded++
	return nil
}

// claimDailyLog stores a log claimed by the owner under the owner's id for
// its day, folding it into a log already kept there. Requires recMu.
func (e *syncEngine) claimDailyLog(ctx context.Context, log *models.DailyLog) error {
	oldID := log.ID
	newID := models.DailyLogID(log.OwnerID, log.Date)
	if oldID == newID || log.Deleted {
		return e.local.Update(ctx, log)
	}

	existing, err := e.local.Read(ctx, models.EntityDailyLog, newID)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		log.ID = newID
		err = e.local.Create(ctx, log)
	case err == nil:
		if prev, ok := existing.(*models.DailyLog); ok && !prev.Deleted {
			foldLineItems(log, prev)
		}
		log.ID = newID
		err = e.local.Update(ctx, log)
	}
	if err != nil {
		log.ID = oldID
		return err
	}

	// the merged log is uploaded by the migration itself
	e.queue.RemoveEntity(models.OperationKey{EntityID: newID, EntityType: models.EntityDailyLog})
	if err = e.local.Delete(ctx, models.EntityDailyLog, oldID); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("removing log stored under %s: %w", oldID, err)
	}
	return nil
}

// markMigrated marks the record synced if it still matches the uploaded
// document, and drops a queued operation carrying the same content.
func (e *syncEngine) markMigrated(ctx context.Context, key models.OperationKey, uploaded models.Document) {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	rec, err := e.local.Read(ctx, key.EntityType, key.EntityID)
	if err != nil {
		e.logger.Err(err).Str("entity_id", key.EntityID).Msg("reading migrated record failed")
		return
	}
	if !models.Equivalent(rec.ToRemoteDocument(), uploaded) {
		return
	}

	rec.Meta().Status = models.StatusSynced
	if err = e.local.Update(ctx, rec); err != nil {
		e.logger.Err(err).Str("entity_id", key.EntityID).Msg("marking migrated record synced failed")
		return
	}
	if op, ok := e.queue.Pending(key); ok && models.Equivalent(op.Payload, uploaded) {
		e.queue.Remove(key, op.Seq)
	}
}

// ── Retention ───────────────────────────────────────────────────────────────

// SweepExpired implements SyncEngine. Only daily logs are subject to
// retention; they are deleted through RecordMutation so the deletion syncs.
func (e *syncEngine) SweepExpired(ctx context.Context) (int, error) {
	owner, _, active := e.session()
	owners := []string{""}
	if active {
		owners = append(owners, owner)
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	cutoff := models.NormalizeDate(e.now()).Add(-e.retention)
	expired, err := e.local.Query(ctx, store.Predicate{
		EntityType:     models.EntityDailyLog,
		Owners:         owners,
		OccurredBefore: &cutoff,
	})
	if err != nil {
		return 0, fmt.Errorf("listing expired daily logs: %w", err)
	}

	swept := 0
	for _, rec := range expired {
		if err = e.RecordMutation(ctx, rec, models.OperationDelete); err != nil {
			e.logger.Err(err).Str("entity_id", rec.Meta().ID).Msg("deleting expired daily log failed")
			continue
		}
		swept++
	}

	e.stateMu.Lock()
	e.lastSweepAt = e.now()
	e.stateMu.Unlock()

	if swept > 0 {
		e.logger.Info().Int("swept", swept).Time("cutoff", cutoff).Msg("expired daily logs deleted")
	}
	return swept, nil
}
