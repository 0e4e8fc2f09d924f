// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lzhahn/CountMe-sub003/internal/config"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAdapter создаёт httpServerAdapter, направленный на тестовый сервер
func newTestAdapter(t *testing.T, serverURL string) *httpServerAdapter {
	t.Helper()
	log := logger.NewClientLogger("test", "")
	adapterCfg := config.ClientAdapter{HTTPAddress: serverURL, RequestTimeout: 5 * time.Second}

	a, err := NewHTTPServerAdapter(adapterCfg, log)
	require.NoError(t, err)
	return a.(*httpServerAdapter)
}

func sampleDocument() models.Document {
	return models.Document{
		models.FieldID:           "f-1",
		models.FieldOwnerID:      "owner-1",
		models.FieldLastModified: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		"name":                   "oats",
		"calories":               150.0,
	}
}

func writeDocument(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// ── PutDocument ─────────────────────────────────────────────────────────────

func TestPutDocument_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/food_entries/f-1", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var got models.Document
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.True(t, models.Equivalent(sampleDocument(), got))

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetToken(" secret ")

	err := a.PutDocument(context.Background(), "food_entries", "f-1", sampleDocument())
	require.NoError(t, err)
}

func TestPutDocument_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("owner mismatch"))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	err := a.PutDocument(context.Background(), "food_entries", "f-1", sampleDocument())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.False(t, IsTransient(err))
}

func TestPutDocument_ServiceUnavailableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	err := a.PutDocument(context.Background(), "food_entries", "f-1", sampleDocument())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.True(t, IsTransient(err))
}

func TestPutDocument_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	a := newTestAdapter(t, url)
	err := a.PutDocument(context.Background(), "food_entries", "f-1", sampleDocument())

	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestPutDocument_CancelledIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newTestAdapter(t, srv.URL)
	err := a.PutDocument(ctx, "food_entries", "f-1", sampleDocument())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTransient(err))
}

// ── GetDocument ─────────────────────────────────────────────────────────────

func TestGetDocument_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/food_entries/f-1", r.URL.Path)
		writeDocument(t, w, sampleDocument())
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	got, err := a.GetDocument(context.Background(), "food_entries", "f-1")

	require.NoError(t, err)
	assert.True(t, models.Equivalent(sampleDocument(), got))

	modified, err := got.Time(models.FieldLastModified)
	require.NoError(t, err)
	assert.True(t, modified.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestGetDocument_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.GetDocument(context.Background(), "food_entries", "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ── DeleteDocument ──────────────────────────────────────────────────────────

func TestDeleteDocument_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/daily_logs/d-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	require.NoError(t, a.DeleteDocument(context.Background(), "daily_logs", "d-1"))
}

func TestDeleteDocument_MissingIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	require.NoError(t, a.DeleteDocument(context.Background(), "daily_logs", "d-1"))
}

func TestDeleteDocument_BadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	err := a.DeleteDocument(context.Background(), "daily_logs", "d-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadGateway)
	assert.True(t, IsTransient(err))
}

// ── QueryByOwner ────────────────────────────────────────────────────────────

func TestQueryByOwner_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/food_entries", r.URL.Path)
		assert.Equal(t, "owner-1", r.URL.Query().Get("owner_id"))
		writeDocument(t, w, []models.Document{sampleDocument()})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	docs, err := a.QueryByOwner(context.Background(), "food_entries", "owner-1")

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, models.Equivalent(sampleDocument(), docs[0]))
}

func TestQueryByOwner_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.QueryByOwner(context.Background(), "food_entries", "owner-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

// ── Subscribe ───────────────────────────────────────────────────────────────

func TestSubscribe_ForwardsChanges(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/food_entries/changes", r.URL.Path)
		assert.Equal(t, "owner-1", r.URL.Query().Get("owner_id"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(models.DocumentChange{
			Type: models.ChangeModified, Collection: "food_entries", ID: "f-1", Document: sampleDocument(),
		}))
		require.NoError(t, conn.WriteJSON(models.DocumentChange{Type: models.ChangeRemoved, ID: "f-2"}))

		// hold the connection until the client goes away
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newTestAdapter(t, srv.URL)
	a.SetToken("secret")

	changes, err := a.Subscribe(ctx, "food_entries", "owner-1")
	require.NoError(t, err)

	first := receive(t, changes)
	assert.Equal(t, models.ChangeModified, first.Type)
	assert.True(t, models.Equivalent(sampleDocument(), first.Document))

	second := receive(t, changes)
	assert.Equal(t, models.ChangeRemoved, second.Type)
	assert.Equal(t, "food_entries", second.Collection)

	cancel()
	select {
	case _, ok := <-changes:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("change channel not closed after cancel")
	}
}

func TestSubscribe_HandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Subscribe(context.Background(), "food_entries", "owner-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func receive(t *testing.T, ch <-chan models.DocumentChange) models.DocumentChange {
	t.Helper()
	select {
	case c, ok := <-ch:
		require.True(t, ok, "change channel closed")
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no change received")
	}
	return models.DocumentChange{}
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func TestChangesURL(t *testing.T) {
	a := &httpServerAdapter{baseURL: "https://api.example.com/base"}
	got, err := a.changesURL("daily_logs", "o 1")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/base/api/v1/daily_logs/changes?owner_id=o+1", got)

	a.baseURL = "http://localhost:8080"
	got, err = a.changesURL("daily_logs", "o1")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/v1/daily_logs/changes?owner_id=o1", got)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(mapStatus(http.StatusTooManyRequests, "")))
	assert.True(t, IsTransient(mapStatus(http.StatusGatewayTimeout, "")))
	assert.False(t, IsTransient(mapStatus(http.StatusUnprocessableEntity, "")))
	assert.False(t, IsTransient(errors.New("boom")))
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "host and port", raw: "localhost:8080", want: "http://localhost:8080"},
		{name: "trailing slash", raw: "https://api.example.com/", want: "https://api.example.com"},
		{name: "whitespace", raw: "  http://h:1  ", want: "http://h:1"},
		{name: "empty", raw: "", wantErr: true},
		{name: "no host", raw: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeBaseURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
