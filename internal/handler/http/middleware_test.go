package http

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/service"
	"github.com/lzhahn/CountMe-sub003/internal/utils"
	"github.com/lzhahn/CountMe-sub003/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuthService принимает только заранее известные токены
type stubAuthService struct {
	owners map[string]string
}

func (s *stubAuthService) CreateToken(context.Context, string) (models.Token, error) {
	return models.Token{}, errors.New("not implemented")
}

func (s *stubAuthService) ParseToken(_ context.Context, tokenString string) (models.Token, error) {
	ownerID, ok := s.owners[tokenString]
	if !ok {
		return models.Token{}, service.ErrTokenIsExpiredOrInvalid
	}
	return models.Token{SignedString: tokenString, OwnerID: ownerID}, nil
}

func newAuthTestHandler() *Handler {
	return NewHandler(&service.Services{
		AuthService: &stubAuthService{owners: map[string]string{
			"good":    "u1",
			"noowner": "",
		}},
	}, logger.Nop())
}

// ── getTokenFromAuthHeader ──────────────────────────────────────────────────

func TestGetTokenFromAuthHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "extra spaces", header: "Bearer   abc ", want: "abc"},
		{name: "no token part", header: "Bearer", wantErr: ErrInvalidAuthorizationHeader},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantErr: ErrInvalidAuthorizationHeader},
		{name: "blank token", header: "Bearer   ", wantErr: ErrEmptyToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := getTokenFromAuthHeader(tc.header)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// ── auth ────────────────────────────────────────────────────────────────────

func TestAuth_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Token good"},
		{"unknown token", "Bearer bad"},
		{"token without owner", "Bearer noowner"},
	}

	h := newAuthTestHandler()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.auth(next).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called)
		})
	}
}

func TestAuth_StoresOwnerInContext(t *testing.T) {
	var ownerID string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ownerID, _ = utils.GetOwnerIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	newAuthTestHandler().auth(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", ownerID)
}

// ── withTraceID ─────────────────────────────────────────────────────────────

func TestWithTraceID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reused   bool
	}{
		{name: "generated when absent", incoming: "", reused: false},
		{name: "client id reused", incoming: "req-42.a_b", reused: true},
		{name: "invalid characters replaced", incoming: "bad id\n", reused: false},
		{name: "too long replaced", incoming: strings.Repeat("a", maxTraceIDLength+1), reused: false},
	}

	h := NewHandler(&service.Services{}, logger.Nop())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.incoming != "" {
				req.Header.Set(traceIDHeader, tc.incoming)
			}
			rec := httptest.NewRecorder()
			h.withTraceID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)

			got := rec.Header().Get(traceIDHeader)
			require.NotEmpty(t, got)
			if tc.reused {
				assert.Equal(t, tc.incoming, got)
			} else {
				assert.NotEqual(t, tc.incoming, got)
				assert.True(t, validTraceID(got))
			}
		})
	}
}

// ── responseWriter ──────────────────────────────────────────────────────────

func TestResponseWriter_RecordsStatusAndSize(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &responseWriter{ResponseWriter: rec}

	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusInternalServerError) // игнорируется
	_, err := w.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, w.status)
	assert.Equal(t, 5, w.size)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestResponseWriter_ImplicitOK(t *testing.T) {
	w := &responseWriter{ResponseWriter: httptest.NewRecorder()}

	_, _ = w.Write([]byte("x"))

	assert.Equal(t, http.StatusOK, w.status)
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	w := &responseWriter{ResponseWriter: httptest.NewRecorder()}

	_, _, err := w.Hijack()

	assert.Error(t, err)
	assert.False(t, w.hijacked)
}

// ── withGZip ────────────────────────────────────────────────────────────────

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestWithGZip_CompressesResponse(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"f1"}]`))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	withGZip(next).ServeHTTP(rec, req)

	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"f1"}]`, string(body))
}

func TestWithGZip_SkipsNoContent(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	withGZip(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Zero(t, rec.Body.Len())
}

func TestWithGZip_PlainWithoutAcceptEncoding(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("plain"))
	})

	rec := httptest.NewRecorder()
	withGZip(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "plain", rec.Body.String())
}

func TestWithGZip_DecompressesRequest(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		assert.Empty(t, r.Header.Get("Content-Encoding"))
	})

	req := httptest.NewRequest(http.MethodPut, "/", bytes.NewReader(gzipBytes(t, `{"id":"f1"}`)))
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()
	withGZip(next).ServeHTTP(rec, req)

	assert.Equal(t, `{"id":"f1"}`, got)
}

func TestWithGZip_InvalidRequestBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()
	withGZip(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next must not be called")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ── statusFromError ─────────────────────────────────────────────────────────

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid token", service.ErrTokenIsExpiredOrInvalid, http.StatusUnauthorized},
		{"wrapped ownership", errors.Join(errors.New("ctx"), service.ErrOwnershipMismatch), http.StatusForbidden},
		{"unknown collection", service.ErrUnknownCollection, http.StatusNotFound},
		{"malformed", models.ErrMalformedDocument, http.StatusUnprocessableEntity},
		{"id mismatch", service.ErrDocumentIDMismatch, http.StatusUnprocessableEntity},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, public := statusFromError(tc.err)

			assert.Equal(t, tc.status, status)
			if tc.status == http.StatusInternalServerError {
				assert.Nil(t, public)
			} else {
				assert.ErrorIs(t, tc.err, public)
			}
		})
	}
}
