package feed

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/wikifeed/internal/models"
)

var priorityWeights = map[models.Priority]float64{
	models.PriorityHigh:   3,
	models.PriorityMedium: 2,
	models.PriorityLow:    1,
}

var typeWeights = map[models.ContentType]float64{
	models.TypePermissionsMatrix:    10,
	models.TypeAccountManagement:    8,
	models.TypeUserSystem:           6,
	models.TypeAPIDocumentation:     4,
	models.TypeWelcome:              2,
	models.TypeGeneralDocumentation: 3,
}

const defaultTypeWeight = 3

var typeIcons = map[models.ContentType]string{
	models.TypePermissionsMatrix:    "🔐",
	models.TypeAccountManagement:    "👥",
	models.TypeUserSystem:           "👤",
	models.TypeWelcome:              "🏠",
	models.TypeAPIDocumentation:     "⚙️",
	models.TypeGeneralDocumentation: "📖",
}

const defaultIcon = "📄"

var typeClasses = map[models.ContentType]string{
	models.TypePermissionsMatrix:    "permissions-card",
	models.TypeAccountManagement:    "management-card",
	models.TypeUserSystem:           "user-card",
	models.TypeWelcome:              "welcome-card",
	models.TypeAPIDocumentation:     "api-card",
	models.TypeGeneralDocumentation: "docs-card",
}

const defaultTypeClass = "docs-card"

// Icon returns the card icon for a content type.
func Icon(t models.ContentType) string {
	if icon, ok := typeIcons[t]; ok {
		return icon
	}
	return defaultIcon
}

// TypeClass returns the style tag for a content type.
func TypeClass(t models.ContentType) string {
	if class, ok := typeClasses[t]; ok {
		return class
	}
	return defaultTypeClass
}

// StyleClass is the composite class string used by HTML front ends.
func StyleClass(t models.ContentType, p models.Priority) string {
	return fmt.Sprintf("wiki-card %s priority-%s", TypeClass(t), p)
}

// ActionButtons returns the contextual actions for a content type.
//
// The assign_roles action is keyed on the literal "permissions"; the
// classifier emits "permissions_matrix", so parsed pages never get it.
func ActionButtons(contentType string) []models.Action {
	actions := []models.Action{
		{Icon: "🔗", Label: "View in Wiki", ActionID: "view_wiki"},
		{Icon: "⭐", Label: "Feature", ActionID: "mark_feature"},
	}
	if contentType == "permissions" {
		actions = append(actions, models.Action{Icon: "👥", Label: "Assign Roles", ActionID: "assign_roles"})
	}
	return actions
}

// EngagementScore folds a page's metrics into the card score, capped at 100.
func EngagementScore(m models.PageMetrics) int {
	return m.CardEngagement()
}

// CardPriority buckets a card. Permission and account pages are always high.
func CardPriority(t models.ContentType, score int) models.Priority {
	switch {
	case t == models.TypePermissionsMatrix || t == models.TypeAccountManagement:
		return models.PriorityHigh
	case score >= 75:
		return models.PriorityHigh
	case score >= 50:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// rankScore is the composite timeline sort key.
func rankScore(c models.Card, now time.Time) float64 {
	pw, ok := priorityWeights[c.Priority]
	if !ok {
		pw = 1
	}
	tw, ok := typeWeights[c.ContentType]
	if !ok {
		tw = defaultTypeWeight
	}
	hours := now.Sub(c.Timestamp).Hours()
	recency := max(0, 100-hours)
	return 0.4*float64(c.EngagementScore) + 0.3*recency + 0.3*(pw*tw)
}

const (
	previewLines    = 3
	previewMaxRunes = 200
)

// contentPreview keeps the first few non-blank, non-heading lines.
func contentPreview(content string) string {
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kept = append(kept, line)
		if len(kept) >= previewLines {
			break
		}
	}
	preview := strings.Join(kept, "\n")
	if utf8.RuneCountInString(preview) > previewMaxRunes {
		preview = string([]rune(preview)[:previewMaxRunes-3]) + "..."
	}
	return preview
}
