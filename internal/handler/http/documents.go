// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/models"
)

// putDocument handles PUT /api/v1/{collection}/{id}. The body is the full
// document; its id and owner_id must match the path and the token.
func (h *Handler) putDocument(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")

	var doc models.Document
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDocumentSize)).Decode(&doc); err != nil {
		log.Err(err).Str("func", "*Handler.putDocument").Msg("invalid JSON was passed")
		http.Error(w, "invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if err := h.services.DocumentService.PutDocument(r.Context(), collection, id, doc); err != nil {
		h.writeError(w, r, "*Handler.putDocument", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")

	doc, err := h.services.DocumentService.GetDocument(r.Context(), collection, id)
	if err != nil {
		h.writeError(w, r, "*Handler.getDocument", err)
		return
	}

	writeJSON(w, r, http.StatusOK, doc)
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	collection, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")

	if err := h.services.DocumentService.DeleteDocument(r.Context(), collection, id); err != nil {
		h.writeError(w, r, "*Handler.deleteDocument", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// listDocuments handles GET /api/v1/{collection}[?owner_id=]. Only the
// caller's own documents are ever listed.
func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	docs, err := h.services.DocumentService.QueryByOwner(r.Context(), collection, r.URL.Query().Get("owner_id"))
	if err != nil {
		h.writeError(w, r, "*Handler.listDocuments", err)
		return
	}

	writeJSON(w, r, http.StatusOK, docs)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, fn string, err error) {
	status, public := statusFromError(err)

	event := logger.FromRequest(r).Warn()
	if status >= http.StatusInternalServerError {
		event = logger.FromRequest(r).Error()
	}
	event.Err(err).Str("func", fn).Int("status", status).Msg("request failed")

	if public == nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, public.Error(), status)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromRequest(r).Err(err).Msg("writing response failed")
	}
}
