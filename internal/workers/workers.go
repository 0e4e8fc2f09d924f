package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/service"
	"golang.org/x/sync/errgroup"
)

type Workers struct {
	workers []Worker
	logger  *logger.Logger
}

func NewWorkers(logger *logger.Logger, workers ...Worker) *Workers {
	return &Workers{workers: workers, logger: logger}
}

// Run starts every worker and waits for all of them. The first failure
// cancels the rest and is returned; cancellation of ctx is not an error.
func (w *Workers) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, worker := range w.workers {
		g.Go(func() error {
			err := worker.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Err(err).Int("worker", i).Msg("worker stopped with error")
				return fmt.Errorf("worker %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// NewStatusReporter logs a snapshot of the sync engine every interval.
func NewStatusReporter(engine service.SyncEngine, interval time.Duration, logger *logger.Logger) Worker {
	return WorkerFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				st := engine.Status()
				event := logger.Info()
				if len(st.Failures) > 0 {
					event = logger.Warn()
				}
				event.Str("owner_id", st.OwnerID).
					Bool("running", st.Running).
					Bool("migration_pending", st.MigrationPending).
					Int("pending", st.Pending).
					Int("failed", len(st.Failures)).
					Time("last_sync_at", st.LastSyncAt).
					Msg("sync status")
			}
		}
	})
}
