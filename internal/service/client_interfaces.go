package service

import (
	"context"
	"time"

	"github.com/lzhahn/CountMe-sub003/models"
)

//go:generate mockgen -source=client_interfaces.go -destination=../mock/client_service_mock.go -package=mock

// SyncEngine keeps the local store and the remote store consistent for the
// signed-in owner. Application code talks to it only through RecordMutation;
// everything else is driven by the session watcher and background jobs.
type SyncEngine interface {
	// RecordMutation applies a create, update or delete to the local store
	// and, while a session is active, queues it for upload. It never waits on
	// the network. Local failures are returned wrapped in ErrLocalWrite.
	RecordMutation(ctx context.Context, rec models.SyncableRecord, kind models.OperationKind) error

	// StartSync begins syncing for ownerID: one change subscription per
	// collection, an immediate drain and pull, and the periodic job. Calling
	// it again for the same owner is a no-op.
	StartSync(ctx context.Context, ownerID string) error

	// StopSync ends the session and waits for background work to exit. The
	// queue and local data are kept.
	StopSync()

	// MigrateLocalData claims unowned local records for ownerID and uploads
	// every record that is not synced yet. Re-running it is safe.
	MigrateLocalData(ctx context.Context, ownerID string) (models.MigrationReport, error)

	// ForceSyncNow drains the queue and pulls every collection.
	ForceSyncNow(ctx context.Context) (models.SyncReport, error)

	// HandleRemoteChange applies one event from a remote subscription.
	HandleRemoteChange(ctx context.Context, change models.DocumentChange)

	// SweepExpired deletes daily logs older than the retention window and
	// returns how many were removed.
	SweepExpired(ctx context.Context) (int, error)

	Status() models.EngineStatus

	// Failures lists operations dropped after a permanent failure, newest
	// last.
	Failures() []models.FailedOperation

	// RetryFailed queues every failed operation again.
	RetryFailed(ctx context.Context) (int, error)
}

// SyncJob runs the engine's periodic work in the background.
type SyncJob interface {
	// Start launches the background goroutine, ticking every interval. If
	// interval is zero or negative it defaults to the drain interval default.
	// Any previously running job is stopped before the new one begins.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the background goroutine to exit and blocks until it has
	// fully terminated.
	Stop()

	// Trigger requests a tick as soon as possible without waiting for the
	// ticker. Triggers arriving while one is pending are coalesced.
	Trigger()
}

// AuthProvider reports session transitions.
type AuthProvider interface {
	States() <-chan models.AuthState
}
