package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Books and manifests.
	r.Get("/books", h.ListBooks)
	r.Get("/books/{book}/manifest", h.GetManifest)
	r.Get("/books/{book}/runs", h.ListRuns)

	// Pipeline triggers.
	r.Post("/import", h.Import)
	r.Post("/scan", h.Scan)
	r.Post("/scan/import", h.ImportPending)

	// Sync status.
	r.Get("/status", h.Status)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
