package parser

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/wikifeed/internal/models"
)

const (
	maxFeatures          = 10
	maxSummaryCandidates = 10
	minSentenceLen       = 20
	maxSentenceLen       = 200
	idealSentenceLen     = 100
	summaryPlaceholder   = "Exciting content awaits..."
)

var (
	titleRe   = regexp.MustCompile(`(?m)^#{1,3}\s+(.+)$`)
	headingRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)

	headerMarkRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	boldRe       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe     = regexp.MustCompile(`\*(.*?)\*`)
	inlineCodeRe = regexp.MustCompile("`(.*?)`")
	linkTextRe   = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	tableRowRe   = regexp.MustCompile(`(?m)^\|.*\|$`)
	sentenceRe   = regexp.MustCompile(`[.!?]+`)

	codeBlockRe = regexp.MustCompile("(?s)```.*?```")
	linkRe      = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

	bulletRe   = regexp.MustCompile(`(?m)^[\s]*[-*+]\s+(.+)$`)
	numberedRe = regexp.MustCompile(`(?m)^[\s]*\d+\.\s+(.+)$`)
)

// summaryKeywords score candidate summary sentences.
var summaryKeywords = []string{
	"account", "user", "permission", "invite", "management",
	"system", "feature", "implement", "create",
}

// featureHeadingKeywords promote headings into the feature list.
var featureHeadingKeywords = []string{
	"invite", "remove", "change", "edit", "manage", "create",
}

// extractTitle returns the first level 1-3 heading, or a prettified filename.
func extractTitle(content, filename string) string {
	if m := titleRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return prettifyFilename(filename)
}

// prettifyFilename turns "account-member_roles.md" into "Account Member Roles".
func prettifyFilename(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), ".md")
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	words := strings.Fields(stem)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}

// stripMarkdown removes headers, emphasis, inline code, link targets and table rows.
func stripMarkdown(content string) string {
	s := headerMarkRe.ReplaceAllString(content, "")
	s = boldRe.ReplaceAllString(s, "$1")
	s = italicRe.ReplaceAllString(s, "$1")
	s = inlineCodeRe.ReplaceAllString(s, "$1")
	s = linkTextRe.ReplaceAllString(s, "$1")
	s = tableRowRe.ReplaceAllString(s, "")
	return s
}

// generateSummary picks the most on-topic sentence and caps it at maxLen runes.
func generateSummary(content string, maxLen int) string {
	var sentences []string
	for _, s := range sentenceRe.Split(stripMarkdown(content), -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	best := ""
	bestScore := -1
	bestDistance := 0
	considered := 0
	for _, s := range sentences {
		n := utf8.RuneCountInString(s)
		if n <= minSentenceLen || n >= maxSentenceLen {
			continue
		}
		considered++
		if considered > maxSummaryCandidates {
			break
		}
		score := keywordScore(s)
		distance := abs(n - idealSentenceLen)
		if score > bestScore || (score == bestScore && distance < bestDistance) {
			best, bestScore, bestDistance = s, score, distance
		}
	}

	if best == "" {
		best = summaryPlaceholder
		for _, s := range sentences {
			if utf8.RuneCountInString(s) > minSentenceLen {
				best = s
				break
			}
		}
	}
	return truncate(best, maxLen)
}

func keywordScore(sentence string) int {
	lower := strings.ToLower(sentence)
	score := 0
	for _, kw := range summaryKeywords {
		score += strings.Count(lower, kw)
	}
	return score
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// extractMetadata collects headings, tables, code blocks and links.
func extractMetadata(content string) models.PageMetadata {
	meta := models.PageMetadata{
		Headings:      []string{},
		InternalLinks: []models.Link{},
		ExternalLinks: []models.Link{},
	}

	for _, m := range headingRe.FindAllStringSubmatch(content, -1) {
		meta.Headings = append(meta.Headings, strings.TrimSpace(m[1]))
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, "|") {
			meta.HasTable = true
		}
		if strings.HasPrefix(strings.TrimSpace(line), "|") {
			meta.TableRows++
		}
	}

	meta.CodeBlocks = len(codeBlockRe.FindAllStringIndex(content, -1))

	for _, m := range linkRe.FindAllStringSubmatch(content, -1) {
		l := models.Link{Text: m[1], URL: m[2]}
		if strings.HasPrefix(l.URL, "http") {
			meta.ExternalLinks = append(meta.ExternalLinks, l)
		} else {
			meta.InternalLinks = append(meta.InternalLinks, l)
		}
	}

	meta.WikiLinks = extractWikiLinks(content)
	meta.Frontmatter = frontmatter([]byte(content))
	return meta
}

// classify assigns the content type. Rules are evaluated in order; first match wins.
func classify(title, content string, hasTable bool) models.ContentType {
	t := strings.ToLower(title)
	c := strings.ToLower(content)
	switch {
	case (strings.Contains(t, "permission") || strings.Contains(c, "permission")) && hasTable:
		return models.TypePermissionsMatrix
	case strings.Contains(t, "account") && strings.Contains(t, "management"):
		return models.TypeAccountManagement
	case strings.Contains(t, "user"):
		return models.TypeUserSystem
	case t == "home":
		return models.TypeWelcome
	case strings.Contains(c, "api") || strings.Contains(c, "endpoint"):
		return models.TypeAPIDocumentation
	default:
		return models.TypeGeneralDocumentation
	}
}

// extractFeatures gathers list items and action headings, deduplicated
// case-insensitively in first-seen order and capped at maxFeatures.
func extractFeatures(content string, headings []string) []string {
	var candidates []string
	for _, re := range []*regexp.Regexp{bulletRe, numberedRe} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			item := strings.TrimSpace(m[1])
			if utf8.RuneCountInString(item) > 5 {
				candidates = append(candidates, item)
			}
		}
	}
	for _, h := range headings {
		if containsAny(strings.ToLower(h), featureHeadingKeywords) {
			candidates = append(candidates, h)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	out := []string{}
	for _, c := range candidates {
		key := strings.ToLower(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
		if len(out) == maxFeatures {
			break
		}
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
