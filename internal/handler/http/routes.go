package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	// routes without authorization
	router.Get("/api/version", h.getServerVersion)

	router.Route("/api/v1/{collection}", func(r chi.Router) {
		r.Use(h.auth)

		// the change feed hijacks the connection and must stay uncompressed
		r.Get("/changes", h.changes)

		r.Group(func(r chi.Router) {
			r.Use(withGZip)

			r.Get("/", h.listDocuments)
			r.Put("/{id}", h.putDocument)
			r.Get("/{id}", h.getDocument)
			r.Delete("/{id}", h.deleteDocument)
		})
	})

	return router
}
