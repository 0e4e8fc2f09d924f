package service

import (
	"github.com/lzhahn/CountMe-sub003/internal/adapter"
	"github.com/lzhahn/CountMe-sub003/internal/config"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/store"
)

type ClientServices struct {
	Queue          *OperationQueue
	SyncEngine     SyncEngine
	SessionWatcher *SessionWatcher
}

func NewClientServices(
	storages *store.ClientStorages,
	serverAdapter adapter.ServerAdapter,
	auth AuthProvider,
	cfg *config.ClientConfig,
	logger *logger.Logger,
) *ClientServices {
	queue := NewOperationQueue(storages.Queue, cfg.Sync.QueueCapacity, logger)
	engine := NewSyncEngine(storages.Records, queue, serverAdapter, cfg.Sync, cfg.Workers, logger)

	return &ClientServices{
		Queue:          queue,
		SyncEngine:     engine,
		SessionWatcher: NewSessionWatcher(engine, auth, logger),
	}
}
