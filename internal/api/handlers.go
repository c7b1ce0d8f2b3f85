package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wikifeed/internal/apperr"
	"github.com/starford/wikifeed/internal/models"
	"github.com/starford/wikifeed/internal/wikiservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *wikiservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *wikiservice.Service) *Handler {
	return &Handler{svc: svc}
}

// pageParam returns the decoded {file} URL parameter.
func pageParam(r *http.Request) string {
	raw := chi.URLParam(r, "file")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Timeline handles GET /api/timeline.
//
//	@Summary		Ranked card feed built from every wiki page
//	@Tags			feed
//	@Produce		json
//	@Success		200	{object}	TimelineResponse
//	@Security		BearerAuth
//	@Router			/timeline [get]
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.Timeline(r.Context())
	if err != nil {
		writeError(w, "timeline", err)
		return
	}
	writeJSON(w, http.StatusOK, TimelineResponse{Cards: cards, Total: len(cards)})
}

// GetCard handles GET /api/cards/{file}.
//
// Pages that exist but fail to parse come back as error cards with 200.
//
//	@Summary		Card for one wiki page
//	@Tags			feed
//	@Produce		json
//	@Param			file	path		string	true	"Page filename"
//	@Success		200		{object}	models.Card
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/cards/{file} [get]
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.svc.Card(r.Context(), pageParam(r))
	if err != nil {
		writeError(w, "get card", err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// Roadmap handles GET /api/roadmap.
//
//	@Summary		Configured project phases
//	@Tags			feed
//	@Produce		json
//	@Success		200	{array}	models.Phase
//	@Security		BearerAuth
//	@Router			/roadmap [get]
func (h *Handler) Roadmap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Roadmap(r.Context()))
}

// Stats handles GET /api/stats.
//
//	@Summary		Summary counts for the dashboard header
//	@Tags			feed
//	@Produce		json
//	@Success		200	{object}	models.StatsSummary
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats(r.Context()))
}

// Actions handles GET /api/actions/{contentType}.
//
//	@Summary		Action buttons offered for a content type
//	@Tags			feed
//	@Produce		json
//	@Param			contentType	path		string	true	"Content type"
//	@Success		200			{object}	ActionsResponse
//	@Security		BearerAuth
//	@Router			/actions/{contentType} [get]
func (h *Handler) Actions(w http.ResponseWriter, r *http.Request) {
	ct := chi.URLParam(r, "contentType")
	writeJSON(w, http.StatusOK, ActionsResponse{
		ContentType: ct,
		Actions:     h.svc.Actions(r.Context(), ct),
	})
}

// ClearCache handles DELETE /api/cache.
//
//	@Summary		Drop every cached card
//	@Tags			feed
//	@Success		204
//	@Security		BearerAuth
//	@Router			/cache [delete]
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across wiki pages
//	@Tags			index
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Backlinks handles GET /api/pages/{file}/backlinks.
//
//	@Summary		Pages that link to a page
//	@Tags			index
//	@Produce		json
//	@Param			file	path		string	true	"Page filename"
//	@Success		200		{object}	BacklinksResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{file}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	file := pageParam(r)
	links, err := h.svc.Backlinks(r.Context(), file)
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Filename: file, Backlinks: links})
}

// Sync handles POST /api/sync.
//
// The sync result is always returned. A missing or non-git repository
// answers 409, any other failed pull 502.
//
//	@Summary		Pull the wiki repository and refresh the feed
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	models.SyncResult
//	@Failure		409	{object}	models.SyncResult
//	@Failure		502	{object}	models.SyncResult
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	res := h.svc.ForceSync(r.Context())
	writeJSON(w, syncStatusCode(res), res)
}

func syncStatusCode(res models.SyncResult) int {
	switch {
	case res.OK():
		return http.StatusOK
	case res.Error == apperr.ErrRepositoryMissing.Error(), res.Error == apperr.ErrNotRepository.Error():
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// SyncStatus handles GET /api/sync/status.
//
//	@Summary		Repository state and health, without running git
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	models.RepoStatus
//	@Security		BearerAuth
//	@Router			/sync/status [get]
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.SyncStatus(r.Context()))
}

// SyncHistory handles GET /api/sync/history.
//
//	@Summary		Recorded sync attempts, oldest first
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/sync/history [get]
func (h *Handler) SyncHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HistoryResponse{History: h.svc.SyncHistory(r.Context())})
}

// SyncChanges handles GET /api/sync/changes.
//
//	@Summary		Files changed between two commits
//	@Tags			sync
//	@Produce		json
//	@Param			before	query		string	false	"Older commit, defaults to HEAD~1"
//	@Param			after	query		string	false	"Newer commit, defaults to HEAD"
//	@Success		200		{object}	ChangesResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sync/changes [get]
func (h *Handler) SyncChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	before, after := q.Get("before"), q.Get("after")
	changes, err := h.svc.Changes(r.Context(), before, after)
	if err != nil {
		writeError(w, "sync changes", err)
		return
	}
	writeJSON(w, http.StatusOK, ChangesResponse{Before: before, After: after, Changes: changes})
}
