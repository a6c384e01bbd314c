package vecstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/horosvec"

	"github.com/finflow/finflow/embedder"
)

// overfetch compensates for the document filter: the ANN engine knows nothing
// about doc_key, so the join back to the chunk table may discard candidates.
const overfetch = 4

// vamanaStore delegates nearest-neighbour search to the horosvec
// (Vamana+RaBitQ) engine and keeps chunk text and provenance in the shared
// chunks table. Chunk ids are content hashes, so an id already present in the
// ANN index carries the same vector and is skipped on re-insert.
type vamanaStore struct {
	db     *sql.DB
	idx    *horosvec.Index
	logger *slog.Logger
}

func newVamanaStore(db *sql.DB, cfg Config) (*vamanaStore, error) {
	idx, err := horosvec.New(db, cfg.Horosvec)
	if err != nil {
		return nil, fmt.Errorf("vecstore: open vamana index: %w", err)
	}
	return &vamanaStore{db: db, idx: idx, logger: cfg.Logger}, nil
}

func (s *vamanaStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vecstore: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks
			(id, doc, doc_key, doc_index, seq, text, vector, norm, dimension, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s','now'))`)
	if err != nil {
		return fmt.Errorf("vecstore: prepare: %w", err)
	}
	defer stmt.Close()

	var newVecs [][]float32
	var newIDs [][]byte
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("vecstore: entry %s has no vector", e.ID)
		}

		var existed int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM chunks WHERE id = ?`, e.ID).Scan(&existed); err != nil {
			return fmt.Errorf("vecstore: check %s: %w", e.ID, err)
		}

		_, err := stmt.ExecContext(ctx,
			e.ID, e.Doc, e.DocKey, e.DocIndex, e.Seq, e.Text,
			embedder.SerializeVector(e.Vector), embedder.Norm(e.Vector), len(e.Vector))
		if err != nil {
			return fmt.Errorf("vecstore: upsert %s: %w", e.ID, err)
		}
		if existed == 0 {
			newVecs = append(newVecs, e.Vector)
			newIDs = append(newIDs, []byte(e.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vecstore: commit: %w", err)
	}

	if len(newVecs) > 0 {
		if err := s.idx.Insert(newVecs, newIDs); err != nil {
			return fmt.Errorf("vecstore: ann insert: %w", err)
		}
	}
	s.logger.Debug("upserted chunks", "count", len(entries), "ann_inserted", len(newVecs))
	return nil
}

func (s *vamanaStore) Query(ctx context.Context, vector []float32, topK int, docKey string) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	results, err := s.idx.Search(vector, topK*overfetch)
	if err != nil {
		return nil, fmt.Errorf("vecstore: ann search: %w", err)
	}

	matches := make([]Match, 0, topK)
	for _, res := range results {
		m := Match{ID: string(res.ID), Score: float64(res.Score)}
		err := s.db.QueryRowContext(ctx,
			`SELECT doc, doc_key, doc_index, seq, text FROM chunks WHERE id = ?`, m.ID).
			Scan(&m.Doc, &m.DocKey, &m.DocIndex, &m.Seq, &m.Text)
		if err == sql.ErrNoRows {
			s.logger.Warn("ann hit without chunk row", "id", m.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("vecstore: lookup %s: %w", m.ID, err)
		}
		if docKey != "" && m.DocKey != docKey {
			continue
		}
		matches = append(matches, m)
		if len(matches) == topK {
			break
		}
	}
	return matches, nil
}

func (s *vamanaStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("vecstore: count: %w", err)
	}
	return n, nil
}

// Close releases the ANN index and the database it was opened over.
func (s *vamanaStore) Close() error {
	err := s.idx.Close()
	if dbErr := s.db.Close(); err == nil {
		err = dbErr
	}
	return err
}
