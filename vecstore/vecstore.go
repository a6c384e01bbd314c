// Package vecstore is the similarity index for embedded fact-sheet chunks.
//
// Entries live in a single SQLite file: the chunk text and provenance in a
// plain table, the vector as a little-endian float32 blob with its L2 norm
// precomputed. Two engines share that file:
//
//   - "exact"  — full cosine scan over the (optionally doc-filtered)
//     candidate rows. The default; fact sheets produce tens of chunks, not
//     millions.
//   - "vamana" — the horosvec ANN engine handles nearest-neighbour search;
//     metadata is joined back from the chunk table and the document filter
//     is applied by over-fetching.
//
// Opening an existing index is a no-op beyond schema application; deleting
// a missing index is a no-op. Upserts overwrite by id.
package vecstore

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/hazyhaar/horosvec"
	_ "modernc.org/sqlite"

	"github.com/finflow/finflow/dbopen"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	doc_key    TEXT NOT NULL,
	doc_index  INTEGER NOT NULL,
	seq        INTEGER NOT NULL,
	text       TEXT NOT NULL,
	vector     BLOB NOT NULL,
	norm       REAL NOT NULL,
	dimension  INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_doc_key ON chunks(doc_key);
`

// Entry is one embedded chunk to index.
type Entry struct {
	ID       string
	Doc      string // source identifier (URL or filename)
	DocKey   string // stable partition key (hash of source)
	DocIndex int    // document position within its run
	Seq      int    // chunk position within its document
	Text     string
	Vector   []float32
}

// Match is one similarity-search result, most similar first.
type Match struct {
	ID       string
	Doc      string
	DocKey   string
	DocIndex int
	Seq      int
	Text     string
	Score    float64
}

// Store persists vectors and answers similarity queries.
type Store interface {
	// Upsert inserts entries, overwriting any existing entry with the same id.
	Upsert(ctx context.Context, entries []Entry) error

	// Query returns up to topK entries ranked by similarity to vector.
	// A non-empty docKey restricts results to that document partition.
	Query(ctx context.Context, vector []float32, topK int, docKey string) ([]Match, error)

	// Count returns the number of indexed entries.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Config configures the store.
type Config struct {
	// Path is the SQLite database file holding the index.
	Path string `json:"path" yaml:"path"`

	// Engine selects the similarity engine: "exact" (default) or "vamana".
	Engine string `json:"engine" yaml:"engine"`

	// CacheSize sets PRAGMA cache_size. Default: -64000 (64 MB).
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// Horosvec configures the vamana engine; ignored by "exact".
	Horosvec horosvec.Config `json:"horosvec" yaml:"horosvec"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Engine == "" {
		c.Engine = "exact"
	}
	if c.CacheSize == 0 {
		c.CacheSize = -64_000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Open creates or opens the index at cfg.Path. Creation is lazy and
// idempotent: opening an existing index applies the schema as a no-op.
func Open(cfg Config) (Store, error) {
	cfg.defaults()

	db, err := dbopen.Open(cfg.Path,
		dbopen.WithMkdirAll(),
		dbopen.WithCacheSize(cfg.CacheSize),
		dbopen.WithSchema(schema),
	)
	if err != nil {
		return nil, err
	}

	switch cfg.Engine {
	case "exact":
		return &exactStore{db: db, logger: cfg.Logger}, nil
	case "vamana":
		s, err := newVamanaStore(db, cfg)
		if err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	default:
		db.Close()
		return nil, errors.New("vecstore: unknown engine " + cfg.Engine)
	}
}

// Drop deletes the index files entirely. Deleting a non-existing index is
// a no-op.
func Drop(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
