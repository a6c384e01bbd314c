package vecstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/finflow/finflow/embedder"
)

// exactStore ranks candidates with a full cosine scan. Norms are precomputed
// at write time so the scan is one dot product per row.
type exactStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func (s *exactStore) Upsert(ctx context.Context, entries []Entry) error {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("vecstore: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("vecstore: entry %s has no vector", e.ID)
		}
		_, err := stmt.ExecContext(ctx,
			e.ID, e.Doc, e.DocKey, e.DocIndex, e.Seq, e.Text,
			embedder.SerializeVector(e.Vector), embedder.Norm(e.Vector),
			len(e.Vector), now)
		if err != nil {
			return fmt.Errorf("vecstore: upsert %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vecstore: commit: %w", err)
	}
	s.logger.Debug("upserted chunks", "count", len(entries))
	return nil
}

func (s *exactStore) Query(ctx context.Context, vector []float32, topK int, docKey string) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	qNorm := embedder.Norm(vector)
	if qNorm == 0 {
		return nil, nil
	}

	query := `SELECT id, doc, doc_key, doc_index, seq, text, vector, norm FROM chunks`
	args := []any{}
	if docKey != "" {
		query += ` WHERE doc_key = ?`
		args = append(args, docKey)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vecstore: query: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var blob []byte
		var norm float64
		if err := rows.Scan(&m.ID, &m.Doc, &m.DocKey, &m.DocIndex, &m.Seq, &m.Text, &blob, &norm); err != nil {
			return nil, fmt.Errorf("vecstore: scan: %w", err)
		}
		v, err := embedder.DeserializeVector(blob)
		if err != nil {
			s.logger.Warn("skipping corrupt vector", "id", m.ID, "error", err)
			continue
		}
		if len(v) != len(vector) || norm == 0 {
			continue
		}
		m.Score = embedder.CosineSimilarityNormed(vector, v, qNorm, norm)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vecstore: rows: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *exactStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("vecstore: count: %w", err)
	}
	return n, nil
}

func (s *exactStore) Close() error {
	return s.db.Close()
}
