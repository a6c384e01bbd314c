package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
)

// ChunkMeta is the provenance of one chunk: which document it came from and
// where it sits inside it.
type ChunkMeta struct {
	Doc      string `json:"doc"`       // source identifier (URL or filename)
	DocKey   string `json:"doc_key"`   // stable partition key, hash of Doc
	DocIndex int    `json:"doc_index"` // document position within the run
	Seq      int    `json:"seq"`       // chunk position within the document
}

// Chunk is one embeddable slice of a document.
type Chunk struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	Meta ChunkMeta `json:"meta"`
}

// Retrieved is one similarity hit for the question, in rank order. Rank is
// authoritative; Score is informational.
type Retrieved struct {
	Text  string    `json:"text"`
	Meta  ChunkMeta `json:"meta"`
	Score float64   `json:"score"`
}

// Metrics is the fixed extraction schema for a fact sheet. Absent values stay
// at their zero value; AUM is nullable because sheets quote it in wildly
// different units.
type Metrics struct {
	ExpenseRatio      string   `json:"expense_ratio"`
	AUM               *string  `json:"aum"`
	InceptionDate     string   `json:"inception_date"`
	Benchmark         string   `json:"benchmark"`
	TopHoldingsSample []string `json:"top_holdings_sample"`

	// Incomplete marks metrics the model failed to produce as valid JSON
	// after a retry. The fields above are zero in that case.
	Incomplete bool `json:"incomplete,omitempty"`
}

// State carries one pipeline invocation end to end. Files and Sources are
// parallel: Files[i] is a pre-resolved local path (may be empty), Sources[i]
// the document identifier (URL or filename). Stages fill in the rest.
type State struct {
	Files   []string
	Sources []string
	Q       string

	// TargetDoc selects which source's partition filters retrieval.
	TargetDoc int

	Chunks    []Chunk
	Retrieved []Retrieved
	Extracted *Metrics
	AnswerMD  string

	// IndexOK reports whether the embed/upsert stage succeeded. A false
	// value degrades retrieval, it does not abort the run.
	IndexOK bool
}

// DocKey returns the stable partition key for a source identifier. The same
// source always maps to the same key, across runs and processes.
func DocKey(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:16]
}

// ChunkID returns the content-addressed id of a chunk. Identical text from
// the same document yields the same id, so re-ingesting a document overwrites
// its own entries instead of colliding with other runs.
func ChunkID(docKey, text string) string {
	sum := sha256.Sum256([]byte(docKey + ":" + text))
	return hex.EncodeToString(sum[:])[:24]
}
