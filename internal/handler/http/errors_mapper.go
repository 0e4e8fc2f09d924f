package http

import (
	"errors"
	"net/http"

	"github.com/lzhahn/CountMe-sub003/internal/service"
	"github.com/lzhahn/CountMe-sub003/internal/store"
	"github.com/lzhahn/CountMe-sub003/models"
)

type errorStatus struct {
	err    error
	status int
}

// errorStatuses is checked in order; the first match wins.
var errorStatuses = []errorStatus{
	{service.ErrTokenIsExpiredOrInvalid, http.StatusUnauthorized},
	{service.ErrOwnershipMismatch, http.StatusForbidden},
	{store.ErrOwnerMismatch, http.StatusForbidden},
	{service.ErrUnknownCollection, http.StatusNotFound},
	{store.ErrDocumentNotFound, http.StatusNotFound},
	{service.ErrDocumentIDMismatch, http.StatusUnprocessableEntity},
	{models.ErrMalformedDocument, http.StatusUnprocessableEntity},
	{service.ErrInvalidDataProvided, http.StatusBadRequest},
	{service.ErrVersionIsNotSpecified, http.StatusBadRequest},
	{store.ErrTemporarilyUnavailable, http.StatusServiceUnavailable},
}

func statusFromError(err error) (int, error) {
	for _, es := range errorStatuses {
		if errors.Is(err, es.err) {
			return es.status, es.err
		}
	}
	return http.StatusInternalServerError, nil
}
