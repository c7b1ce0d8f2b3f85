// Package feed turns parsed wiki pages into ranked dashboard cards.
package feed

import (
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/starford/wikifeed/internal/memo"
	"github.com/starford/wikifeed/internal/models"
)

// DefaultAuthor is attributed to every card unless overridden.
const DefaultAuthor = "SuperApp Team"

const (
	statsStatus     = "ALIVE AND GROWING! 🌱"
	errorLabel      = "ERROR STATE! 🚨"
	errorCardAuthor = "System"
)

// PageSource parses pages and lists the wiki directory. *parser.Parser
// satisfies it.
type PageSource interface {
	Parse(filename string) models.ParsedPage
	Files() ([]models.PageFile, error)
}

// CardCache memoizes successful cards by filename.
type CardCache = memo.Cache[string, models.Card]

// Generator builds cards, timelines and summaries.
type Generator struct {
	pages   PageSource
	cache   *CardCache
	now     func() time.Time
	author  string
	roadmap []models.Phase
}

// Option configures a Generator.
type Option func(*Generator)

// WithCache injects the card cache, e.g. one shared with an invalidating watcher.
func WithCache(c *CardCache) Option {
	return func(g *Generator) { g.cache = c }
}

// WithClock overrides the time source used for recency and summaries.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithAuthor sets the author shown on cards.
func WithAuthor(author string) Option {
	return func(g *Generator) {
		if author != "" {
			g.author = author
		}
	}
}

// WithRoadmap replaces the roadmap phases.
func WithRoadmap(phases []models.Phase) Option {
	return func(g *Generator) { g.roadmap = phases }
}

// New creates a Generator over pages.
func New(pages PageSource, opts ...Option) *Generator {
	g := &Generator{
		pages:   pages,
		now:     time.Now,
		author:  DefaultAuthor,
		roadmap: DefaultRoadmap(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cache == nil {
		g.cache = memo.New[string, models.Card]()
	}
	return g
}

// CreateCard returns the card for filename. Successful cards are cached
// until invalidated; error cards are rebuilt on every call.
func (g *Generator) CreateCard(filename string) models.Card {
	card, _ := g.cache.GetOrCompute(filename, func() models.Card {
		return g.buildCard(filename)
	}, func(c models.Card) bool {
		return c.Status == models.StatusSuccess
	})
	return card
}

func (g *Generator) buildCard(filename string) models.Card {
	page := g.pages.Parse(filename)
	if !page.OK() {
		return g.errorCard(filename, page.Error)
	}

	score := EngagementScore(page.Metrics)
	priority := CardPriority(page.ContentType, score)
	m := page.Metrics

	return models.Card{
		ID:              "wiki_card_" + page.ID,
		Filename:        filename,
		Title:           page.Title,
		Summary:         page.Summary,
		Content:         page.RawContent,
		ContentPreview:  contentPreview(page.RawContent),
		Timestamp:       page.LastModifiedTime,
		Author:          g.author,
		ContentType:     page.ContentType,
		Expandable:      true,
		Actions:         ActionButtons(string(page.ContentType)),
		EngagementScore: score,
		Priority:        priority,
		Features:        page.Features,
		Metrics:         m,
		StyleTag:        TypeClass(page.ContentType),
		StyleClass:      StyleClass(page.ContentType, priority),
		IconTag:         Icon(page.ContentType),
		EngagementLabel: m.EngagementPotential,
		ContentStats: models.ContentStats{
			ReadTime:     fmt.Sprintf("%d min read", m.EstimatedReadTime),
			Complexity:   m.ComplexityScore,
			FeatureCount: m.FeatureCount,
			WordCount:    m.WordCount,
		},
		Status: models.StatusSuccess,
	}
}

func (g *Generator) errorCard(filename, detail string) models.Card {
	if detail == "" {
		detail = "Unknown error"
	}
	return models.Card{
		ID:              "error_card_" + filename,
		Filename:        filename,
		Title:           "Error: " + filename,
		Summary:         "Could not parse wiki page: " + detail,
		Timestamp:       g.now(),
		Author:          errorCardAuthor,
		ContentType:     models.TypeError,
		Actions:         []models.Action{},
		EngagementScore: 0,
		Priority:        models.PriorityLow,
		StyleTag:        defaultTypeClass,
		StyleClass:      StyleClass(models.TypeError, models.PriorityLow),
		IconTag:         defaultIcon,
		EngagementLabel: errorLabel,
		Status:          models.StatusError,
		Error:           detail,
	}
}

// Timeline builds a card for every page and returns them best first.
// Error cards are left out.
func (g *Generator) Timeline() ([]models.Card, error) {
	files, err := g.pages.Files()
	if err != nil {
		return nil, fmt.Errorf("feed: timeline: %w", err)
	}

	cards := make([]models.Card, 0, len(files))
	for _, f := range files {
		card := g.CreateCard(f.Path)
		if card.Status != models.StatusSuccess {
			continue
		}
		cards = append(cards, card)
	}
	SortCards(cards, g.now())
	return cards, nil
}

// SortCards orders cards by descending composite rank. Equal ranks keep
// their input order.
func SortCards(cards []models.Card, now time.Time) {
	type ranked struct {
		card  models.Card
		score float64
	}
	rs := make([]ranked, len(cards))
	for i, c := range cards {
		rs[i] = ranked{card: c, score: rankScore(c, now)}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].score > rs[j].score
	})
	for i := range rs {
		cards[i] = rs[i].card
	}
}

// Roadmap returns the configured project phases.
func (g *Generator) Roadmap() []models.Phase {
	out := make([]models.Phase, len(g.roadmap))
	copy(out, g.roadmap)
	return out
}

// StatsSummary reports page counts for the dashboard header.
// TotalFeatures is not aggregated and is always zero.
func (g *Generator) StatsSummary() models.StatsSummary {
	total := 0
	if files, err := g.pages.Files(); err == nil {
		total = len(files)
	}
	return models.StatsSummary{
		TotalPages:    total,
		TotalFeatures: 0,
		LastUpdated:   g.now(),
		Status:        statsStatus,
	}
}

// Invalidate drops cached cards for the given files.
func (g *Generator) Invalidate(filenames ...string) {
	g.cache.Delete(filenames...)
}

// ClearCache drops every cached card.
func (g *Generator) ClearCache() {
	g.cache.Clear()
}

// CacheStats exposes lookup counters of the card cache.
func (g *Generator) CacheStats() memo.Stats {
	return g.cache.Stats()
}

// CachedFiles lists the filenames with a cached card.
func (g *Generator) CachedFiles() []string {
	files := g.cache.Keys()
	sort.Strings(files)
	return files
}

// StaleOnEdit returns a card cache validator that rejects a card once its
// page was modified after the card was built, or no longer exists.
func StaleOnEdit(stat func(name string) (fs.FileInfo, error)) memo.ValidFunc[string, models.Card] {
	return func(name string, e memo.Entry[models.Card]) bool {
		info, err := stat(name)
		return err == nil && !info.ModTime().After(e.Value.Timestamp)
	}
}

// DefaultRoadmap is the built-in project roadmap.
func DefaultRoadmap() []models.Phase {
	return []models.Phase{
		{
			Phase:    "Foundation & Backend",
			Status:   "in_progress",
			Progress: 75,
			Features: []string{"Laravel Backend", "Database Schema", "Account Management", "User System"},
		},
		{
			Phase:    "Food Vertical",
			Status:   "pending",
			Progress: 15,
			Features: []string{"Restaurant Management", "Menu System", "Order Processing", "Payment Integration"},
		},
		{
			Phase:    "Multi-Vertical Platform",
			Status:   "pending",
			Progress: 5,
			Features: []string{"Spa Booking", "Gym Memberships", "Trade Services", "Unified Dashboard"},
		},
	}
}
