package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/lzhahn/CountMe-sub003/internal/config"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
})

// ── NewServer ───────────────────────────────────────────────────────────────

func TestNewServer_NoAddress(t *testing.T) {
	s, err := NewServer(okHandler, config.Server{}, logger.Nop())

	assert.ErrorIs(t, err, errNoServersAreCreated)
	assert.Nil(t, s)
}

func TestNewServer_NoHandler(t *testing.T) {
	_, err := NewServer(nil, config.Server{HTTPAddress: "127.0.0.1:0"}, logger.Nop())

	assert.ErrorIs(t, err, errNoServersAreCreated)
}

// ── Run ─────────────────────────────────────────────────────────────────────

func TestHTTPServer_ServesUntilCancelled(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	h := newHTTPServer(okHandler, config.Server{RequestTimeout: time.Second}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.serve(ctx, listener) }()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String())
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}

func TestServer_Run_ListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	s, err := NewServer(okHandler, config.Server{HTTPAddress: busy.Addr().String()}, logger.Nop())
	require.NoError(t, err)

	assert.Error(t, s.Run(context.Background()))
}
