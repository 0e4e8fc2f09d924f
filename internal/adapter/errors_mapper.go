package adapter

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	return mapStatus(resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
}

func mapStatus(code int, body string) error {
	switch code {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, body)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, body)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, body)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrUnprocessable, body)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: %s", ErrTransient, ErrTooManyRequests, body)
	case http.StatusBadGateway:
		return fmt.Errorf("%w: %w: %s", ErrTransient, ErrBadGateway, body)
	case http.StatusInternalServerError:
		return fmt.Errorf("%w: %w: %s", ErrTransient, ErrInternalServerError, body)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %w: %s", ErrTransient, ErrServiceUnavailable, body)
	}

	if body == "" {
		body = http.StatusText(code)
	}
	if code >= http.StatusInternalServerError {
		return fmt.Errorf("%w: http %d: %s", ErrTransient, code, body)
	}
	return fmt.Errorf("http %d: %s", code, body)
}
