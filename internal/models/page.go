// Package models defines the domain types for wikifeed.
package models

import "time"

// Result statuses shared by parse, card and sync records.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ContentType classifies what a wiki page is about.
type ContentType string

// Content types, in classifier priority order.
const (
	TypePermissionsMatrix    ContentType = "permissions_matrix"
	TypeAccountManagement    ContentType = "account_management"
	TypeUserSystem           ContentType = "user_system"
	TypeWelcome              ContentType = "welcome"
	TypeAPIDocumentation     ContentType = "api_documentation"
	TypeGeneralDocumentation ContentType = "general_documentation"

	// TypeError marks a card synthesized from a failed parse.
	TypeError ContentType = "error"
)

// ErrCodeFileNotFound is the error code set when a page file is missing.
const ErrCodeFileNotFound = "file_not_found"

// ParsedPage is the output of parsing one Markdown file.
type ParsedPage struct {
	ID               string       `json:"id"`
	Filename         string       `json:"filename"`
	Title            string       `json:"title"`
	RawContent       string       `json:"raw_content"`
	Summary          string       `json:"summary"`
	ContentType      ContentType  `json:"content_type"`
	Features         []string     `json:"features"`
	Metadata         PageMetadata `json:"metadata"`
	Metrics          PageMetrics  `json:"metrics"`
	Checksum         string       `json:"checksum,omitempty"`
	LastModifiedTime time.Time    `json:"last_modified_time"`
	Status           string       `json:"status"`
	Error            string       `json:"error,omitempty"`
}

// OK reports whether the page parsed successfully.
func (p *ParsedPage) OK() bool {
	return p.Status == StatusSuccess
}

// PageMetadata holds structural facts extracted from the page body.
type PageMetadata struct {
	Headings      []string       `json:"headings"`
	HasTable      bool           `json:"has_table"`
	TableRows     int            `json:"table_rows"`
	CodeBlocks    int            `json:"code_blocks"`
	InternalLinks []Link         `json:"internal_links"`
	ExternalLinks []Link         `json:"external_links"`
	WikiLinks     []string       `json:"wiki_links"`
	Frontmatter   map[string]any `json:"frontmatter,omitempty"`
}

// Link is a Markdown [text](url) reference.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// PageMetrics are the content heuristics computed for a page.
type PageMetrics struct {
	WordCount             int    `json:"word_count"`
	LineCount             int    `json:"line_count"`
	CharCount             int    `json:"char_count"`
	ComplexityScore       int    `json:"complexity_score"`
	EngagementScore       int    `json:"engagement_score"`
	FeatureCount          int    `json:"feature_count"`
	TableCount            int    `json:"table_count"`
	CodeBlockCount        int    `json:"code_block_count"`
	HeadingCount          int    `json:"heading_count"`
	EstimatedReadTime     int    `json:"estimated_read_time"`
	EngagementPotential   string `json:"engagement_potential"`
	MondayMadnessApproved bool   `json:"monday_madness_approved"`
}

// CardEngagement folds the metrics into the card score: the base score plus
// bonuses for approval, features and moderate complexity, capped at 100.
func (m PageMetrics) CardEngagement() int {
	score := m.EngagementScore
	if m.MondayMadnessApproved {
		score += 25
	}
	score += min(5*m.FeatureCount, 25)
	if m.ComplexityScore >= 20 && m.ComplexityScore <= 80 {
		score += 15
	}
	return min(score, 100)
}

// PageFile is a lightweight listing entry for a page on disk.
type PageFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
