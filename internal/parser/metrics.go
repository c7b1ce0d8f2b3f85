package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/wikifeed/internal/models"
)

// technicalTerms raise a page's complexity score.
var technicalTerms = map[string]struct{}{
	"api":            {},
	"authentication": {},
	"permission":     {},
	"validation":     {},
	"migration":      {},
	"database":       {},
}

// Engagement labels by score tier.
const (
	LabelTopTier  = "LEGENDARY! 🏆"
	LabelHigh     = "HIGH! 🚀"
	LabelSolid    = "SOLID! 💪"
	LabelBuilding = "BUILDING! 🔨"
)

func computeMetrics(content string, meta models.PageMetadata, features []string) models.PageMetrics {
	words := strings.Fields(content)
	wordCount := len(words)

	techTerms := 0
	for _, w := range words {
		w = strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if _, ok := technicalTerms[w]; ok {
			techTerms++
		}
	}
	bullets := len(bulletRe.FindAllStringIndex(content, -1))
	numbered := len(numberedRe.FindAllStringIndex(content, -1))

	complexity := 5 * (techTerms + meta.CodeBlocks + bullets + len(meta.Headings) + meta.TableRows)
	if complexity > 100 {
		complexity = 100
	}

	engagement := 0
	if containsAny(strings.ToLower(content), featureHeadingKeywords) {
		engagement += 25
	}
	if meta.CodeBlocks > 0 {
		engagement += 25
	}
	if bullets+numbered > 0 {
		engagement += 25
	}
	if wordCount > 100 && wordCount < 1000 {
		engagement += 25
	}

	readTime := wordCount / 200
	if readTime < 1 {
		readTime = 1
	}

	return models.PageMetrics{
		WordCount:             wordCount,
		LineCount:             strings.Count(content, "\n") + 1,
		CharCount:             utf8.RuneCountInString(content),
		ComplexityScore:       complexity,
		EngagementScore:       engagement,
		FeatureCount:          len(features),
		TableCount:            meta.TableRows,
		CodeBlockCount:        meta.CodeBlocks,
		HeadingCount:          len(meta.Headings),
		EstimatedReadTime:     readTime,
		EngagementPotential:   EngagementLabel(engagement),
		MondayMadnessApproved: engagement > 50,
	}
}

// EngagementLabel maps a 0-100 score to its qualitative tier.
func EngagementLabel(score int) string {
	switch {
	case score >= 75:
		return LabelTopTier
	case score >= 50:
		return LabelHigh
	case score >= 25:
		return LabelSolid
	default:
		return LabelBuilding
	}
}
