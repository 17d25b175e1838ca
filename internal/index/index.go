package index

// DocumentIndex defines the interface for document persistence operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, links []string) error
	DeleteDocument(did string) error
	GetChecksum(did string) (string, error)
	GetDocument(did string) (*DocumentRow, error)
	ListDocuments(tag string) ([]DocumentRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(target string) ([]string, error)
	AllChecksums() (map[string]string, error)
	RecordBuild(b BuildRow) (int64, error)
	LatestBuild() (*BuildRow, error)
	PruneBuilds(keep int) error
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
