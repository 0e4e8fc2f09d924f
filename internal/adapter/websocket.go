package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/lzhahn/CountMe-sub003/models"
)

// changeBuffer bounds how far the feed may run ahead of its consumer.
const changeBuffer = 64

// Subscribe implements [RemoteStore]. It opens a websocket to
// /api/v1/{collection}/changes and forwards every decoded change on the
// returned channel.
func (h *httpServerAdapter) Subscribe(ctx context.Context, collection, ownerID string) (<-chan models.DocumentChange, error) {
	endpoint, err := h.changesURL(collection, ownerID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if token := h.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, fmt.Errorf("subscribe %s: %w", collection, mapStatus(resp.StatusCode, resp.Status))
		}
		return nil, requestError("subscribe "+collection, err)
	}

	changes := make(chan models.DocumentChange, changeBuffer)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(changes)
		defer close(done)
		defer conn.Close()

		for {
			var change models.DocumentChange
			if err := conn.ReadJSON(&change); err != nil {
				if ctx.Err() == nil && !isNormalClose(err) {
					h.logger.Warn().Err(err).Str("collection", collection).Msg("change feed closed")
				}
				return
			}
			if change.Collection == "" {
				change.Collection = collection
			}

			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		}
	}()

	return changes, nil
}

func (h *httpServerAdapter) changesURL(collection, ownerID string) (string, error) {
	u, err := url.Parse(h.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + apiPrefix + "/" + url.PathEscape(collection) + "/changes"
	u.RawQuery = url.Values{"owner_id": {ownerID}}.Encode()

	return u.String(), nil
}

func isNormalClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}
