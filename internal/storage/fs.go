package storage

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/wikifeed/internal/checksum"
	"github.com/starford/wikifeed/internal/models"
)

// pagePattern selects wiki pages. Only the top level of the wiki is scanned.
const pagePattern = "*.md"

// FS implements Provider backed by the local file system.
type FS struct {
	root   string // absolute path to wiki directory
	logger *slog.Logger
}

// Option configures an FS.
type Option func(*FS)

// WithLogger sets the logger used to report unreadable pages.
func WithLogger(l *slog.Logger) Option {
	return func(f *FS) { f.logger = l }
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, opts ...Option) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	f := &FS{root: abs, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Root returns the absolute wiki directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the wiki root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes wiki root: %s", rel)
	}
	return abs, nil
}

// List returns metadata for every *.md file directly under the wiki root.
// A page that cannot be stat'ed or read is still listed, with an empty
// checksum, so that parsing it reports the failure for that page alone.
func (f *FS) List() ([]models.PageFile, error) {
	matches, err := doublestar.Glob(os.DirFS(f.root), pagePattern)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sort.Strings(matches)

	out := make([]models.PageFile, 0, len(matches))
	for _, name := range matches {
		p := filepath.Join(f.root, name)
		info, err := os.Stat(p)
		if err != nil {
			f.logger.Warn("storage: unreadable page", slog.String("path", name), slog.String("error", err.Error()))
			out = append(out, models.PageFile{Path: name})
			continue
		}
		if info.IsDir() {
			continue
		}
		page := models.PageFile{Path: name, UpdatedAt: info.ModTime()}
		if page.Checksum, err = checksum.File(p); err != nil {
			f.logger.Warn("storage: unreadable page", slog.String("path", name), slog.String("error", err.Error()))
		}
		out = append(out, page)
	}
	return out, nil
}

// Read returns the raw bytes of a wiki file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Stat returns file info for a wiki file.
func (f *FS) Stat(path string) (fs.FileInfo, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return info, nil
}
