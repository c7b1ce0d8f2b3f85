// Package parser turns wiki Markdown pages into structured ParsedPage records.
//
// Parsing is heuristic and regex driven. The rules are kept deliberately
// literal because ranking and classification downstream depend on them.
package parser

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/wikifeed/internal/checksum"
	"github.com/starford/wikifeed/internal/models"
	"github.com/starford/wikifeed/internal/storage"
)

// DefaultSummaryMaxLength is the summary cap used when none is configured.
const DefaultSummaryMaxLength = 150

// Parser reads pages from a wiki directory and parses them.
type Parser struct {
	store         storage.Provider
	summaryMaxLen int
}

// Option configures a Parser.
type Option func(*Parser)

// WithSummaryMaxLength overrides the summary length cap.
func WithSummaryMaxLength(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.summaryMaxLen = n
		}
	}
}

// New creates a Parser reading from store.
func New(store storage.Provider, opts ...Option) *Parser {
	p := &Parser{store: store, summaryMaxLen: DefaultSummaryMaxLength}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Files lists every page in the wiki directory.
func (p *Parser) Files() ([]models.PageFile, error) {
	return p.store.List()
}

// Parse reads filename from the wiki directory and parses it.
// It never panics on bad input; failures come back as status=error records.
func (p *Parser) Parse(filename string) models.ParsedPage {
	info, err := p.store.Stat(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFoundPage(filename)
		}
		return errorPage(filename, err.Error())
	}
	data, err := p.store.Read(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFoundPage(filename)
		}
		return errorPage(filename, err.Error())
	}
	return p.ParseBytes(filename, data, info.ModTime())
}

// ParseBytes parses already-loaded page content.
func (p *Parser) ParseBytes(filename string, data []byte, modTime time.Time) models.ParsedPage {
	if !utf8.Valid(data) {
		return errorPage(filename, "invalid UTF-8 content")
	}
	content := string(data)

	title := extractTitle(content, filename)
	meta := extractMetadata(content)
	features := extractFeatures(content, meta.Headings)
	metrics := computeMetrics(content, meta, features)

	return models.ParsedPage{
		ID:               pageID(filename),
		Filename:         filename,
		Title:            title,
		RawContent:       content,
		Summary:          generateSummary(content, p.summaryMaxLen),
		ContentType:      classify(title, content, meta.HasTable),
		Features:         features,
		Metadata:         meta,
		Metrics:          metrics,
		Checksum:         checksum.Sum(data),
		LastModifiedTime: modTime,
		Status:           models.StatusSuccess,
	}
}

// pageID lowercases the file stem and swaps hyphens for underscores.
func pageID(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), ".md")
	return strings.ReplaceAll(strings.ToLower(stem), "-", "_")
}

func notFoundPage(filename string) models.ParsedPage {
	return models.ParsedPage{
		ID:          pageID(filename),
		Filename:    filename,
		Title:       "File Not Found",
		Summary:     "The requested wiki page could not be found.",
		ContentType: models.TypeGeneralDocumentation,
		Features:    []string{},
		Status:      models.StatusError,
		Error:       models.ErrCodeFileNotFound,
	}
}

func errorPage(filename, detail string) models.ParsedPage {
	return models.ParsedPage{
		ID:          pageID(filename),
		Filename:    filename,
		Title:       "Error Parsing File",
		Summary:     "The wiki page could not be read.",
		ContentType: models.TypeGeneralDocumentation,
		Features:    []string{},
		Status:      models.StatusError,
		Error:       detail,
	}
}
