package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/lzhahn/CountMe-sub003/internal/config"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/utils"
	"github.com/lzhahn/CountMe-sub003/models"
)

const apiPrefix = "/api/v1"

type httpServerAdapter struct {
	client  *utils.HTTPClient
	baseURL string

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs an HTTP/REST implementation of [ServerAdapter].
// It normalises and validates the base URL from adapterCfg.HTTPAddress and
// configures the underlying HTTP client with the resolved base URL and request
// timeout.
//
// Returns an error if adapterCfg.HTTPAddress is empty or cannot be parsed as a
// valid URL.
func NewHTTPServerAdapter(adapterCfg config.ClientAdapter, logger *logger.Logger) (ServerAdapter, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	client := utils.NewHTTPClient(baseURL, adapterCfg.RequestTimeout)
	return &httpServerAdapter{client: client, baseURL: baseURL, logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken implements [TokenHolder]. It stores token (whitespace-trimmed) for
// use in the Authorization header of all subsequent requests.
func (h *httpServerAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Token implements [TokenHolder].
func (h *httpServerAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// PutDocument implements [RemoteStore] via PUT /api/v1/{collection}/{id}.
func (h *httpServerAdapter) PutDocument(ctx context.Context, collection, id string, doc models.Document) error {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetPathParams(map[string]string{"collection": collection, "id": id}).
		SetBody(doc).
		Put(apiPrefix + "/{collection}/{id}")
	if err != nil {
		return requestError("put document", err)
	}

	return mapHTTPError(resp)
}

// GetDocument implements [RemoteStore] via GET /api/v1/{collection}/{id}.
func (h *httpServerAdapter) GetDocument(ctx context.Context, collection, id string) (models.Document, error) {
	var doc models.Document

	resp, err := h.authedRequest(ctx).
		SetPathParams(map[string]string{"collection": collection, "id": id}).
		SetResult(&doc).
		Get(apiPrefix + "/{collection}/{id}")
	if err != nil {
		return nil, requestError("get document", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("get document %s/%s: empty response body", collection, id)
	}

	return doc, nil
}

// DeleteDocument implements [RemoteStore] via DELETE /api/v1/{collection}/{id}.
// A 404 response counts as success.
func (h *httpServerAdapter) DeleteDocument(ctx context.Context, collection, id string) error {
	resp, err := h.authedRequest(ctx).
		SetPathParams(map[string]string{"collection": collection, "id": id}).
		Delete(apiPrefix + "/{collection}/{id}")
	if err != nil {
		return requestError("delete document", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		h.logger.Debug().Str("collection", collection).Str("id", id).Msg("remote document already gone")
		return nil
	}

	return mapHTTPError(resp)
}

// QueryByOwner implements [RemoteStore] via GET /api/v1/{collection}?owner_id=.
func (h *httpServerAdapter) QueryByOwner(ctx context.Context, collection, ownerID string) ([]models.Document, error) {
	var docs []models.Document

	resp, err := h.authedRequest(ctx).
		SetPathParam("collection", collection).
		SetQueryParam("owner_id", ownerID).
		SetResult(&docs).
		Get(apiPrefix + "/{collection}")
	if err != nil {
		return nil, requestError("query documents", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	return docs, nil
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

// requestError wraps a failure that happened before any response was read.
// Anything other than cancellation is treated as a network problem.
func requestError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}
