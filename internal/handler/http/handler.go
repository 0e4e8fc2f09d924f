package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/service"
)

const (
	// maxDocumentSize bounds request bodies.
	maxDocumentSize = 1 << 20

	changeWriteTimeout = 10 * time.Second
	changePingPeriod   = 30 * time.Second
)

type Handler struct {
	services *service.Services
	upgrader websocket.Upgrader

	logger *logger.Logger
}

func NewHandler(services *service.Services, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// clients are native apps authenticated by bearer token
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}
