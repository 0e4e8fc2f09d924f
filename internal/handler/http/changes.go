package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
)

// changes handles GET /api/v1/{collection}/changes. The connection is
// upgraded to a websocket and every change to the caller's documents in the
// collection is written as one JSON message. The server closes the feed when
// the subscriber falls behind; the client is expected to reconnect and pull.
func (h *Handler) changes(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	collection := chi.URLParam(r, "collection")

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	feed, err := h.services.DocumentService.Subscribe(ctx, collection)
	if err != nil {
		h.writeError(w, r, "*Handler.changes", err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		log.Err(err).Str("func", "*Handler.changes").Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// the read side only serves control frames and notices a closed peer
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	log.Debug().Str("collection", collection).Msg("change feed opened")

	ping := time.NewTicker(changePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-feed:
			if !ok {
				log.Warn().Str("collection", collection).Msg("change feed closed by server")
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber lagging"),
					time.Now().Add(changeWriteTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(changeWriteTimeout))
			if err := conn.WriteJSON(change); err != nil {
				log.Debug().Err(err).Str("collection", collection).Msg("writing change failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(changeWriteTimeout)); err != nil {
				return
			}
		}
	}
}
