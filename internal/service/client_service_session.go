package service

import (
	"context"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/models"
)

// SessionWatcher drives the engine from auth state transitions. Signing in
// migrates local data and starts sync; signing out stops sync and leaves
// local data untouched.
type SessionWatcher struct {
	engine SyncEngine
	auth   AuthProvider

	logger *logger.Logger
}

func NewSessionWatcher(engine SyncEngine, auth AuthProvider, logger *logger.Logger) *SessionWatcher {
	return &SessionWatcher{engine: engine, auth: auth, logger: logger}
}

// Run consumes auth states until ctx is done or the provider closes its
// channel. Sync is stopped on the way out.
func (w *SessionWatcher) Run(ctx context.Context) error {
	defer w.engine.StopSync()

	states := w.auth.States()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-states:
			if !ok {
				return nil
			}
			w.handle(ctx, state)
		}
	}
}

func (w *SessionWatcher) handle(ctx context.Context, state models.AuthState) {
	switch state.Status {
	case models.AuthAuthenticated:
		if state.OwnerID == "" {
			w.logger.Error().Msg("authenticated state without owner id ignored")
			return
		}

		report, err := w.engine.MigrateLocalData(ctx, state.OwnerID)
		if err != nil {
			w.logger.Warn().Err(err).Str("owner_id", state.OwnerID).Msg("local data migration incomplete, will retry")
		} else if report.Claimed+report.Uploaded+report.Deleted > 0 {
			w.logger.Info().Str("owner_id", state.OwnerID).Int("uploaded", report.Uploaded).Msg("local data migrated")
		}

		if err = w.engine.StartSync(ctx, state.OwnerID); err != nil {
			w.logger.Err(err).Str("owner_id", state.OwnerID).Msg("starting sync failed")
		}

	case models.AuthUnauthenticated:
		w.engine.StopSync()

	case models.AuthLoading:
		w.logger.Debug().Msg("waiting for session state")
	}
}
