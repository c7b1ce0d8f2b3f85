package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wikifeed/internal/wikiservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *wikiservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Feed.
	r.Get("/timeline", h.Timeline)
	r.Get("/cards/{file}", h.GetCard)
	r.Get("/roadmap", h.Roadmap)
	r.Get("/stats", h.Stats)
	r.Get("/actions/{contentType}", h.Actions)
	r.Delete("/cache", h.ClearCache)

	// Index.
	r.Get("/search", h.Search)
	r.Get("/pages/{file}/backlinks", h.Backlinks)

	// Repository sync.
	r.Post("/sync", h.Sync)
	r.Get("/sync/status", h.SyncStatus)
	r.Get("/sync/history", h.SyncHistory)
	r.Get("/sync/changes", h.SyncChanges)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
