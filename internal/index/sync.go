package index

import (
	"log/slog"

	"github.com/starford/wikifeed/internal/models"
)

// Source lists and parses wiki pages. *parser.Parser satisfies it.
type Source interface {
	Files() ([]models.PageFile, error)
	Parse(filename string) models.ParsedPage
}

// SyncStats summarizes one Sync pass.
type SyncStats struct {
	Indexed   []string `json:"indexed"`
	Removed   []string `json:"removed"`
	Unchanged int      `json:"unchanged"`
	Failed    int      `json:"failed"`
}

// Sync brings the index up to date with the wiki directory:
//   - new or changed pages are parsed and upserted
//   - pages removed from disk are deleted from the index
//
// Pages that fail to parse are logged and left out.
func Sync(db PageIndex, src Source, logger *slog.Logger) (SyncStats, error) {
	stats := SyncStats{Indexed: []string{}, Removed: []string{}}

	files, err := src.Files()
	if err != nil {
		return stats, err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.Path] = struct{}{}

		if cs, ok := checksums[f.Path]; ok && cs == f.Checksum {
			stats.Unchanged++
			continue
		}
		if err := indexPage(db, src.Parse(f.Path)); err != nil {
			stats.Failed++
			logger.Warn("sync: index failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed = append(stats.Indexed, f.Path)
		logger.Debug("sync: indexed", slog.String("path", f.Path))
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeletePage(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed = append(stats.Removed, p)
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	return stats, nil
}

// ParseError is returned by indexPage for pages with status=error.
type ParseError struct {
	Filename string
	Detail   string
}

func (e *ParseError) Error() string {
	return "index: parse " + e.Filename + ": " + e.Detail
}

// indexPage upserts a parsed page with its wiki and internal links. The
// stored engagement is the card score, so search ranks like the timeline.
func indexPage(db PageIndex, page models.ParsedPage) error {
	if !page.OK() {
		return &ParseError{Filename: page.Filename, Detail: page.Error}
	}

	links := append([]string{}, page.Metadata.WikiLinks...)
	for _, l := range page.Metadata.InternalLinks {
		links = append(links, l.URL)
	}

	row := PageRow{
		Filename:    page.Filename,
		Title:       page.Title,
		ContentType: string(page.ContentType),
		Checksum:    page.Checksum,
		Engagement:  page.Metrics.CardEngagement(),
		Features:    page.Features,
		UpdatedAt:   page.LastModifiedTime,
	}
	return db.UpsertPage(row, page.RawContent, links)
}
