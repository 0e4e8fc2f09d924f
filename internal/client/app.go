package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lzhahn/CountMe-sub003/internal/adapter"
	"github.com/lzhahn/CountMe-sub003/internal/auth"
	"github.com/lzhahn/CountMe-sub003/internal/config"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/service"
	"github.com/lzhahn/CountMe-sub003/internal/store"
	"github.com/lzhahn/CountMe-sub003/internal/workers"
)

// statusReportInterval is how often the engine status is written to the log.
const statusReportInterval = 5 * time.Minute

type App struct {
	storages *store.ClientStorages
	services *service.ClientServices
	auth     *auth.TokenProvider
	workers  *workers.Workers

	sessionToken string
	logger       *logger.Logger
}

// NewApp opens the local stores and wires every client component. Nothing
// talks to the network until Run.
func NewApp(ctx context.Context, cfg *config.ClientConfig, logger *logger.Logger) (*App, error) {
	serverAdapter, err := adapter.NewHTTPServerAdapter(cfg.Adapter, logger)
	if err != nil {
		return nil, fmt.Errorf("create server adapter: %w", err)
	}

	storages, err := store.NewClientStorages(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	provider := auth.NewTokenProvider(serverAdapter, logger)
	services := service.NewClientServices(storages, serverAdapter, provider, cfg, logger)
	// uploads of the ending session must not go out under the next token
	provider.OnSessionEnd(services.SyncEngine.StopSync)

	return &App{
		storages: storages,
		services: services,
		auth:     provider,
		workers: workers.NewWorkers(logger,
			services.SessionWatcher,
			workers.NewStatusReporter(services.SyncEngine, statusReportInterval, logger),
		),
		sessionToken: cfg.App.SessionToken,
		logger:       logger,
	}, nil
}

// Engine is the entry point application code records mutations through.
func (a *App) Engine() service.SyncEngine {
	return a.services.SyncEngine
}

// Auth exposes the session so callers can sign in or out at runtime.
func (a *App) Auth() *auth.TokenProvider {
	return a.auth
}

// Run restores the configured session and runs the background workers until
// ctx is done. On the way out sync is stopped, which persists the queue, and
// the local stores are closed.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.storages.Close(); err != nil {
			a.logger.Err(err).Msg("closing local storage failed")
		}
	}()
	defer a.auth.Close()

	if err := a.auth.Restore(a.sessionToken); err != nil {
		// остаёмся в офлайн-режиме: локальные записи продолжают работать
		a.logger.Warn().Err(err).Msg("session token rejected, running signed out")
	}

	err := a.workers.Run(ctx)
	a.services.SyncEngine.StopSync()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
