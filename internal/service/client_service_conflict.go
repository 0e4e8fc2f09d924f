package service

import (
	"fmt"
	"time"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/models"
)

// ConflictWinner names the side a resolution kept.
type ConflictWinner string

const (
	WinnerLocal  ConflictWinner = "local"
	WinnerRemote ConflictWinner = "remote"
	WinnerMerged ConflictWinner = "merged"
)

// ConflictOutcome is the result of reconciling two versions of a record.
type ConflictOutcome struct {
	Winner ConflictWinner
	// Record is the version to keep. It is a tombstone when Deleted is set,
	// and nil only when neither input was usable.
	Record  models.SyncableRecord
	Deleted bool
}

// ConflictResolver reconciles a local record with its remote counterpart.
type ConflictResolver struct {
	now    func() time.Time
	logger *logger.Logger
}

func NewConflictResolver(logger *logger.Logger) *ConflictResolver {
	return &ConflictResolver{now: models.Now, logger: logger}
}

// Resolve picks the surviving version. Deletion on either side wins. Daily
// logs are merged line item by line item; every other type keeps the strictly
// newer version, and a tie keeps local. Inputs are never modified.
//
// Inputs that cannot be reconciled return ErrConflictResolution together
// with a deletion outcome.
func (r *ConflictResolver) Resolve(local, remote models.SyncableRecord) (ConflictOutcome, error) {
	return r.ResolveWithBase(local, remote, nil)
}

// ResolveWithBase is Resolve with the last synced version the local change
// started from. A daily log merge then drops items that one side removed
// since base instead of bringing them back. A nil base is a plain union.
func (r *ConflictResolver) ResolveWithBase(local, remote, base models.SyncableRecord) (ConflictOutcome, error) {
	switch {
	case local == nil && remote == nil:
		return ConflictOutcome{Deleted: true}, fmt.Errorf("%w: both versions are missing", ErrConflictResolution)
	case local == nil:
		return ConflictOutcome{Winner: WinnerRemote, Record: remote, Deleted: remote.Meta().Deleted}, nil
	case remote == nil:
		return ConflictOutcome{Winner: WinnerLocal, Record: local, Deleted: local.Meta().Deleted}, nil
	}

	lm, rm := local.Meta(), remote.Meta()
	if local.EntityType() != remote.EntityType() || lm.ID != rm.ID {
		return ConflictOutcome{Winner: WinnerLocal, Record: local, Deleted: true},
			fmt.Errorf("%w: %s/%s does not match %s/%s",
				ErrConflictResolution, local.EntityType(), lm.ID, remote.EntityType(), rm.ID)
	}

	var outcome ConflictOutcome
	switch {
	case lm.Deleted:
		outcome = ConflictOutcome{Winner: WinnerLocal, Record: local, Deleted: true}
	case rm.Deleted:
		outcome = ConflictOutcome{Winner: WinnerRemote, Record: remote, Deleted: true}
	default:
		if localLog, ok := local.(*models.DailyLog); ok {
			remoteLog, ok := remote.(*models.DailyLog)
			if !ok {
				return ConflictOutcome{Winner: WinnerLocal, Record: local, Deleted: true},
					fmt.Errorf("%w: daily log %s has a remote version of type %T", ErrConflictResolution, lm.ID, remote)
			}
			baseLog, _ := base.(*models.DailyLog)
			outcome = ConflictOutcome{Winner: WinnerMerged, Record: r.mergeDailyLogs(localLog, remoteLog, baseLog)}
			break
		}

		if rm.LastModified.After(lm.LastModified) {
			outcome = ConflictOutcome{Winner: WinnerRemote, Record: remote}
		} else {
			outcome = ConflictOutcome{Winner: WinnerLocal, Record: local}
		}
	}

	r.logger.Info().
		Str("entity_id", lm.ID).
		Str("entity_type", string(local.EntityType())).
		Time("local_modified", lm.LastModified).
		Time("remote_modified", rm.LastModified).
		Str("winner", string(outcome.Winner)).
		Bool("deleted", outcome.Deleted).
		Msg("conflict resolved")

	return outcome, nil
}

// mergeDailyLogs unites the line items of both logs by id. Local items come
// first and win on duplicate ids; remote-only items follow in remote order.
// With a base, an item present in base and missing on one side counts as
// removed there and is left out.
// A merge that adds nothing to the remote log keeps the remote timestamp, so
// it is recognized as already uploaded.
func (r *ConflictResolver) mergeDailyLogs(local, remote, base *models.DailyLog) *models.DailyLog {
	merged := *local
	if merged.OwnerID == "" {
		merged.OwnerID = remote.OwnerID
	}

	foodID := func(f models.FoodEntry) string { return f.ID }
	workoutID := func(w models.WorkoutEntry) string { return w.ID }
	var baseFoods, baseWorkouts map[string]struct{}
	if base != nil {
		baseFoods = idSet(base.FoodEntries, foodID)
		baseWorkouts = idSet(base.WorkoutEntries, workoutID)
	}

	merged.FoodEntries = mergeItems(local.FoodEntries, remote.FoodEntries, baseFoods, foodID)
	merged.WorkoutEntries = mergeItems(local.WorkoutEntries, remote.WorkoutEntries, baseWorkouts, workoutID)

	merged.Recalculate()
	merged.LastModified = r.now()
	if sameLineItems(&merged, remote) {
		merged.LastModified = remote.LastModified
	}
	return &merged
}

// sameLineItems compares the items of two logs regardless of order.
func sameLineItems(a, b *models.DailyLog) bool {
	if !a.Date.Equal(b.Date) {
		return false
	}
	return sameItems(a.FoodEntries, b.FoodEntries, func(f *models.FoodEntry) models.SyncableRecord { return f }) &&
		sameItems(a.WorkoutEntries, b.WorkoutEntries, func(w *models.WorkoutEntry) models.SyncableRecord { return w })
}

func sameItems[T any](a, b []T, record func(*T) models.SyncableRecord) bool {
	if len(a) != len(b) {
		return false
	}

	byID := make(map[string]models.Document, len(b))
	for i := range b {
		rec := record(&b[i])
		byID[rec.Meta().ID] = rec.ToRemoteDocument()
	}
	for i := range a {
		rec := record(&a[i])
		other, ok := byID[rec.Meta().ID]
		if !ok || !models.Equivalent(rec.ToRemoteDocument(), other) {
			return false
		}
	}
	return true
}

// mergeItems is unionByID that honours removals since base. A nil base
// removes nothing.
func mergeItems[T any](local, remote []T, base map[string]struct{}, id func(T) string) []T {
	if base == nil {
		return unionByID(local, remote, id)
	}

	inRemote := idSet(remote, id)
	out := make([]T, 0, len(local)+len(remote))
	seen := make(map[string]struct{}, len(local))

	for _, item := range local {
		_, synced := base[id(item)]
		_, kept := inRemote[id(item)]
		if synced && !kept {
			continue
		}
		seen[id(item)] = struct{}{}
		out = append(out, item)
	}
	for _, item := range remote {
		if _, ok := seen[id(item)]; ok {
			continue
		}
		if _, synced := base[id(item)]; synced {
			continue
		}
		seen[id(item)] = struct{}{}
		out = append(out, item)
	}
	return out
}

func idSet[T any](items []T, id func(T) string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[id(item)] = struct{}{}
	}
	return set
}

func unionByID[T any](local, remote []T, id func(T) string) []T {
	out := make([]T, 0, len(local)+len(remote))
	seen := make(map[string]struct{}, len(local))

	for _, item := range local {
		seen[id(item)] = struct{}{}
		out = append(out, item)
	}
	for _, item := range remote {
		if _, ok := seen[id(item)]; ok {
			continue
		}
		seen[id(item)] = struct{}{}
		out = append(out, item)
	}
	return out
}
