package api

import (
	"github.com/starford/wikifeed/internal/index"
	"github.com/starford/wikifeed/internal/models"
)

// TimelineResponse wraps the ranked card feed.
type TimelineResponse struct {
	Cards []models.Card `json:"cards" validate:"required"`
	Total int           `json:"total" example:"12" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// BacklinksResponse lists the pages linking to one page.
type BacklinksResponse struct {
	Filename  string   `json:"filename" example:"Roles.md" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// HistoryResponse wraps the recorded sync attempts.
type HistoryResponse struct {
	History []models.SyncHistoryEntry `json:"history" validate:"required"`
}

// ChangesResponse lists files changed between two commits.
type ChangesResponse struct {
	Before  string              `json:"before,omitempty" example:"a1b2c3d4"`
	After   string              `json:"after,omitempty" example:"e5f6a7b8"`
	Changes []models.FileChange `json:"changes" validate:"required"`
}

// ActionsResponse lists the buttons offered for a content type.
type ActionsResponse struct {
	ContentType string          `json:"content_type" example:"permissions_matrix"`
	Actions     []models.Action `json:"actions" validate:"required"`
}
