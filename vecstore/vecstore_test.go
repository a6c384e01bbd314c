package vecstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/horosvec"
)

func openTestStore(t *testing.T) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func entry(id, doc, docKey string, seq int, text string, vec []float32) Entry {
	return Entry{ID: id, Doc: doc, DocKey: docKey, DocIndex: 0, Seq: seq, Text: text, Vector: vec}
}

func TestOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s1, err := Open(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Upsert(context.Background(), []Entry{
		entry("a", "spy.pdf", "k1", 0, "alpha", []float32{1, 0}),
	}); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	// Reopening must see existing entries, not recreate the index.
	s2, err := Open(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	n, err := s2.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count after reopen = %d, want 1", n)
	}
}

func TestUpsertOverwrites(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, []Entry{entry("a", "spy.pdf", "k1", 0, "old text", []float32{1, 0})}); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, []Entry{entry("a", "spy.pdf", "k1", 0, "new text", []float32{0, 1})}); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1 after overwrite", n)
	}

	matches, err := s.Query(ctx, []float32{0, 1}, 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Text != "new text" {
		t.Fatalf("expected overwritten text, got %+v", matches)
	}
}

func TestQueryRanking(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []Entry{
		entry("a", "spy.pdf", "k1", 0, "near", []float32{1, 0.1}),
		entry("b", "spy.pdf", "k1", 1, "far", []float32{0, 1}),
		entry("c", "spy.pdf", "k1", 2, "mid", []float32{0.7, 0.7}),
	})
	if err != nil {
		t.Fatal(err)
	}

	matches, err := s.Query(ctx, []float32{1, 0}, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Text != "near" || matches[1].Text != "mid" {
		t.Fatalf("unexpected ranking: %q then %q", matches[0].Text, matches[1].Text)
	}
	if matches[0].Score < matches[1].Score {
		t.Fatalf("scores not descending: %v, %v", matches[0].Score, matches[1].Score)
	}
}

func TestQueryDocKeyFilter(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []Entry{
		entry("a", "spy.pdf", "kSPY", 0, "spy chunk", []float32{1, 0}),
		entry("b", "voo.pdf", "kVOO", 0, "voo chunk", []float32{1, 0}),
	})
	if err != nil {
		t.Fatal(err)
	}

	matches, err := s.Query(ctx, []float32{1, 0}, 10, "kVOO")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Doc != "voo.pdf" {
		t.Fatalf("filter leaked: %+v", matches)
	}
}

func TestQuerySkipsCorruptVector(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, []Entry{entry("a", "spy.pdf", "k1", 0, "good", []float32{1, 0})}); err != nil {
		t.Fatal(err)
	}

	// A blob whose length is not a multiple of 4 cannot be deserialized.
	_, err := s.(*exactStore).db.ExecContext(ctx, `
		INSERT INTO chunks (id, doc, doc_key, doc_index, seq, text, vector, norm, dimension, created_at)
		VALUES ('bad', 'spy.pdf', 'k1', 0, 1, 'corrupt', ?, 1.0, 2, 0)`,
		[]byte{0x01, 0x02, 0x03})
	if err != nil {
		t.Fatal(err)
	}

	matches, err := s.Query(ctx, []float32{1, 0}, 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Text != "good" {
		t.Fatalf("corrupt row not skipped: %+v", matches)
	}
}

func TestQueryZeroVector(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, []Entry{entry("a", "spy.pdf", "k1", 0, "alpha", []float32{1, 0})}); err != nil {
		t.Fatal(err)
	}
	matches, err := s.Query(ctx, []float32{0, 0}, 5, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("zero query vector should match nothing, got %+v", matches)
	}
}

func TestDropIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	if err := Drop(path); err != nil {
		t.Fatal(err)
	}
	// Dropping an index that is already gone is a no-op.
	if err := Drop(path); err != nil {
		t.Fatalf("second drop: %v", err)
	}

	// A fresh open after drop starts empty.
	s2, err := Open(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	n, err := s2.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("count after drop = %d, want 0", n)
	}
}

func TestVamanaCloseReleasesDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(Config{
		Path:     path,
		Engine:   "vamana",
		Horosvec: horosvec.DefaultConfig(),
	})
	if err != nil {
		t.Fatal(err)
	}

	db := s.(*vamanaStore).db
	if err := db.Ping(); err != nil {
		t.Fatalf("db not usable before close: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := db.Ping(); err == nil {
		t.Fatal("db still open after store close")
	}
}

func TestUnknownEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	if _, err := Open(Config{Path: path, Engine: "faiss"}); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}
