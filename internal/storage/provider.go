// Package storage defines the wiki directory abstraction.
package storage

import (
	"io/fs"

	"github.com/starford/wikifeed/internal/models"
)

// Provider is the interface for read access to the wiki page directory.
type Provider interface {
	// Root returns the absolute wiki directory.
	Root() string
	// List returns metadata for every top-level *.md file, sorted by name.
	List() ([]models.PageFile, error)
	// Read returns the raw bytes of the page file (relative to the wiki root).
	Read(path string) ([]byte, error)
	// Stat returns file info for the page file (relative to the wiki root).
	Stat(path string) (fs.FileInfo, error)
}
