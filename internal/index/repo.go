package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/wikifeed/internal/apperr"
)

// PageRow represents a row in the pages table.
type PageRow struct {
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	ContentType string    `json:"content_type"`
	Checksum    string    `json:"checksum"`
	Engagement  int       `json:"engagement_score"`
	Features    []string  `json:"features"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
}

// LinkTarget normalizes a link destination so [[Roles]], [x](Roles.md) and
// [x](roles#admins) all resolve to the same key.
func LinkTarget(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, ".md")
	return strings.ToLower(strings.TrimSpace(s))
}

// UpsertPage inserts or replaces a page, its FTS entry and its outgoing links
// within a transaction.
func (db *DB) UpsertPage(p PageRow, body string, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	features := p.Features
	if features == nil {
		features = []string{}
	}
	featuresJSON, _ := json.Marshal(features)

	_, err = tx.Exec(`
		INSERT INTO pages (filename, title, content_type, checksum, engagement, features, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			title        = excluded.title,
			content_type = excluded.content_type,
			checksum     = excluded.checksum,
			engagement   = excluded.engagement,
			features     = excluded.features,
			body         = excluded.body,
			updated_at   = excluded.updated_at
	`, p.Filename, p.Title, p.ContentType, p.Checksum, p.Engagement, string(featuresJSON), body, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert page: %w", err)
	}

	if err := ftsUpsert(tx, p.Filename, p.Title, body, features); err != nil {
		return err
	}

	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, p.Filename)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			key := LinkTarget(target)
			if key == "" {
				continue
			}
			if _, err := stmt.Exec(p.Filename, key); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeletePage removes a page, its FTS entry and its outgoing links.
func (db *DB) DeletePage(filename string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, filename)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, filename)
	_, _ = tx.Exec(`DELETE FROM pages WHERE filename = ?`, filename)

	return tx.Commit()
}

const pageColumns = `filename, title, content_type, checksum, engagement, features, updated_at`

func scanPage(scan func(dest ...any) error) (PageRow, error) {
	var (
		p        PageRow
		features string
	)
	if err := scan(&p.Filename, &p.Title, &p.ContentType, &p.Checksum, &p.Engagement, &features, &p.UpdatedAt); err != nil {
		return PageRow{}, err
	}
	if err := json.Unmarshal([]byte(features), &p.Features); err != nil {
		p.Features = []string{}
	}
	return p, nil
}

// GetPage returns one indexed page or apperr.ErrNotFound.
func (db *DB) GetPage(filename string) (*PageRow, error) {
	row := db.conn.QueryRow(`SELECT `+pageColumns+` FROM pages WHERE filename = ?`, filename)
	p, err := scanPage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get page: %w", err)
	}
	return &p, nil
}

// ListPages returns every indexed page, highest engagement first.
func (db *DB) ListPages() ([]PageRow, error) {
	rows, err := db.conn.Query(`SELECT ` + pageColumns + ` FROM pages ORDER BY engagement DESC, filename`)
	if err != nil {
		return nil, fmt.Errorf("index: list pages: %w", err)
	}
	defer rows.Close()

	out := []PageRow{}
	for rows.Next() {
		p, err := scanPage(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AllChecksums returns filename to checksum for every indexed page.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT filename, checksum FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed pages.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// Backlinks returns the filenames of pages linking to target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM links WHERE target = ? ORDER BY source`, LinkTarget(target))
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
