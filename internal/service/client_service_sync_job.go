package service

import (
	"context"
	"sync"
	"time"

	"github.com/lzhahn/CountMe-sub003/internal/config"
)

type syncJob struct {
	tick func(ctx context.Context)

	trigger chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncJob creates a syncJob that calls tick on a ticker and on demand.
// The job is idle until Start is called.
func NewSyncJob(tick func(ctx context.Context)) SyncJob {
	return &syncJob{tick: tick, trigger: make(chan struct{}, 1)}
}

// Start implements SyncJob. It stops any previously running job, then
// launches a background goroutine that calls tick every interval and
// whenever Trigger is called. The goroutine exits when ctx is cancelled or
// Stop is called.
func (j *syncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = config.DefaultDrainInterval
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-t.C:
				j.tick(jobCtx)
			case <-j.trigger:
				j.tick(jobCtx)
			}
		}
	}()
}

// Stop implements SyncJob. It cancels the background goroutine's context and
// blocks until the goroutine has fully exited. Safe to call when the job is not
// running (no-op in that case).
func (j *syncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}

// Trigger implements SyncJob.
func (j *syncJob) Trigger() {
	select {
	case j.trigger <- struct{}{}:
	default:
	}
}
