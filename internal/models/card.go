package models

import "time"

// Priority is the coarse ranking bucket of a card.
type Priority string

// Card priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Card is the UI-facing projection of a parsed wiki page.
type Card struct {
	ID              string       `json:"id"`
	Filename        string       `json:"filename"`
	Title           string       `json:"title"`
	Summary         string       `json:"summary"`
	Content         string       `json:"content"`
	ContentPreview  string       `json:"content_preview"`
	Timestamp       time.Time    `json:"timestamp"`
	Author          string       `json:"author"`
	ContentType     ContentType  `json:"type"`
	Expandable      bool         `json:"expandable"`
	Actions         []Action     `json:"actions"`
	EngagementScore int          `json:"engagement_score"`
	Priority        Priority     `json:"priority"`
	Features        []string     `json:"features"`
	Metrics         PageMetrics  `json:"metrics"`
	StyleTag        string       `json:"style_tag"`
	StyleClass      string       `json:"style_class"`
	IconTag         string       `json:"icon"`
	EngagementLabel string       `json:"engagement_label"`
	ContentStats    ContentStats `json:"content_stats"`
	Status          string       `json:"status"`
	Error           string       `json:"error,omitempty"`
}

// Action is a contextual button attached to a card.
type Action struct {
	Icon     string `json:"icon"`
	Label    string `json:"label"`
	ActionID string `json:"action"`
}

// ContentStats is a reshaped view of PageMetrics for card footers.
type ContentStats struct {
	ReadTime     string `json:"read_time"`
	Complexity   int    `json:"complexity"`
	FeatureCount int    `json:"feature_count"`
	WordCount    int    `json:"word_count"`
}

// Phase is one roadmap entry. Roadmap data is configuration, not derived from pages.
type Phase struct {
	Phase    string   `json:"phase" yaml:"phase"`
	Status   string   `json:"status" yaml:"status"`
	Progress int      `json:"progress" yaml:"progress"`
	Features []string `json:"features" yaml:"features"`
}

// StatsSummary is the quick header summary of the wiki feed.
type StatsSummary struct {
	TotalPages    int       `json:"total_pages"`
	TotalFeatures int       `json:"total_features"`
	LastUpdated   time.Time `json:"last_updated"`
	Status        string    `json:"status"`
}
