package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "countme-sync/1"

// HTTPClient embeds *resty.Client preconfigured for the document API.
// Retries are left to the caller: the sync engine owns backoff, so resty's
// own retry loop stays disabled.
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient returns a client rooted at baseURL that sends and accepts
// JSON. A zero timeout means no per-request limit.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)

	return &HTTPClient{Client: client}
}
