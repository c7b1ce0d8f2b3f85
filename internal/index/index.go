package index

// PageIndex is the read/write surface of the page index. Consumers depend on
// it instead of *DB so they can be tested with fakes.
type PageIndex interface {
	UpsertPage(p PageRow, body string, links []string) error
	DeletePage(filename string) error
	GetPage(filename string) (*PageRow, error)
	ListPages() ([]PageRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(target string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Count() (int, error)
	Close() error
}

var _ PageIndex = (*DB)(nil)
