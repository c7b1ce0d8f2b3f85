// Package wikiservice coordinates the parser, feed generator, sync client and
// page index behind one API used by the HTTP, MCP and CLI front ends.
package wikiservice

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/wikifeed/internal/apperr"
	"github.com/starford/wikifeed/internal/feed"
	"github.com/starford/wikifeed/internal/gitsync"
	"github.com/starford/wikifeed/internal/index"
	"github.com/starford/wikifeed/internal/models"
)

// Pages lists and parses wiki pages. *parser.Parser satisfies it.
type Pages interface {
	Files() ([]models.PageFile, error)
	Parse(filename string) models.ParsedPage
}

// Publisher pushes change notifications to clients. *sse.Broker satisfies it.
type Publisher interface {
	PublishCardEvent(kind, filename string)
	PublishSyncEvent(res models.SyncResult)
}

type nopPublisher struct{}

func (nopPublisher) PublishCardEvent(string, string)    {}
func (nopPublisher) PublishSyncEvent(models.SyncResult) {}

// Service is the application facade.
type Service struct {
	pages  Pages
	feed   *feed.Generator
	repo   *gitsync.Client
	db     index.PageIndex
	pub    Publisher
	logger *slog.Logger

	onIndexed func(pages int)
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where card and sync events go.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.pub = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIndexObserver is called with the indexed page count after each reindex.
func WithIndexObserver(fn func(pages int)) Option {
	return func(s *Service) { s.onIndexed = fn }
}

// New creates a Service.
func New(pages Pages, gen *feed.Generator, repo *gitsync.Client, db index.PageIndex, opts ...Option) *Service {
	s := &Service{
		pages:  pages,
		feed:   gen,
		repo:   repo,
		db:     db,
		pub:    nopPublisher{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeline returns the ranked card feed.
func (s *Service) Timeline(_ context.Context) ([]models.Card, error) {
	return s.feed.Timeline()
}

// Card returns the card for one page. A missing page yields
// apperr.ErrNotFound; other parse failures come back as error cards.
func (s *Service) Card(_ context.Context, filename string) (models.Card, error) {
	if !validPageName(filename) {
		return models.Card{}, apperr.ErrNotFound
	}
	card := s.feed.CreateCard(filename)
	if card.Error == models.ErrCodeFileNotFound {
		return card, apperr.ErrNotFound
	}
	return card, nil
}

// Roadmap returns the configured project phases.
func (s *Service) Roadmap(_ context.Context) []models.Phase {
	return s.feed.Roadmap()
}

// Stats returns the dashboard header summary.
func (s *Service) Stats(_ context.Context) models.StatsSummary {
	return s.feed.StatsSummary()
}

// Actions returns the buttons offered for a content type.
func (s *Service) Actions(_ context.Context, contentType string) []models.Action {
	return feed.ActionButtons(contentType)
}

// Search runs a full-text query against the page index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Backlinks returns pages linking to filename.
func (s *Service) Backlinks(_ context.Context, filename string) ([]string, error) {
	if !validPageName(filename) {
		return nil, apperr.ErrNotFound
	}
	return s.db.Backlinks(filename)
}

// Refresh pulls the repository, drops cards for changed pages, reindexes
// and notifies subscribers. The sync result is returned even on failure.
func (s *Service) Refresh(ctx context.Context) models.SyncResult {
	return s.refresh(ctx, s.repo.PullUpdates)
}

// ForceSync is the manual refresh: the same pull, but a successful one
// drops every cached card rather than only the changed pages.
func (s *Service) ForceSync(ctx context.Context) models.SyncResult {
	res := s.refresh(ctx, s.repo.ForceSyncNow)
	if res.OK() {
		s.feed.ClearCache()
	}
	return res
}

func (s *Service) refresh(ctx context.Context, pull func(context.Context) models.SyncResult) models.SyncResult {
	res := pull(ctx)

	if res.OK() && res.ChangesDetected {
		var changed []string
		for _, f := range res.FilesUpdated {
			if strings.HasSuffix(f, ".md") {
				changed = append(changed, filepath.Base(f))
			}
		}
		s.feed.Invalidate(changed...)
		s.logger.Info("wikiservice: cards invalidated", slog.Int("count", len(changed)))
	}
	if res.OK() {
		if _, err := s.Reindex(ctx); err != nil {
			s.logger.Warn("wikiservice: reindex after sync failed", slog.String("error", err.Error()))
		}
	}

	s.pub.PublishSyncEvent(res)
	return res
}

// Reindex brings the page index in line with the wiki directory and drops
// cached cards for every page it touched.
func (s *Service) Reindex(_ context.Context) (index.SyncStats, error) {
	stats, err := index.Sync(s.db, s.pages, s.logger)
	if err != nil {
		return stats, err
	}
	for _, name := range stats.Indexed {
		s.feed.Invalidate(name)
		s.pub.PublishCardEvent(index.EventUpdated, name)
	}
	for _, name := range stats.Removed {
		s.feed.Invalidate(name)
		s.pub.PublishCardEvent(index.EventDeleted, name)
	}
	if s.onIndexed != nil {
		if n, err := s.db.Count(); err == nil {
			s.onIndexed(n)
		}
	}
	return stats, nil
}

// PageChanged is the watcher callback: it drops the cached card and
// forwards the change to subscribers.
func (s *Service) PageChanged(kind, filename string) {
	s.feed.Invalidate(filename)
	s.pub.PublishCardEvent(kind, filename)
}

// SyncStatus returns the sync client's in-memory status.
func (s *Service) SyncStatus(_ context.Context) models.RepoStatus {
	return s.repo.Status()
}

// SyncHistory returns the recorded sync attempts, oldest first.
func (s *Service) SyncHistory(_ context.Context) []models.SyncHistoryEntry {
	return s.repo.History()
}

// Changes lists files changed between two commits, defaulting to the two
// most recent ones.
func (s *Service) Changes(ctx context.Context, before, after string) ([]models.FileChange, error) {
	return s.repo.DetectFileChanges(ctx, before, after)
}

// ClearCache drops every cached card.
func (s *Service) ClearCache(_ context.Context) {
	s.feed.ClearCache()
	s.logger.Info("wikiservice: card cache cleared")
}

// validPageName accepts top-level markdown filenames only.
func validPageName(name string) bool {
	return strings.HasSuffix(name, ".md") &&
		!strings.ContainsAny(name, `/\`) &&
		name != ".md"
}
