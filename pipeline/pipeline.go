// Package pipeline orchestrates fact-sheet question answering: resolve the
// documents, extract and chunk their text, embed and index the chunks,
// retrieve passages for the question, extract structured metrics and generate
// a cited markdown answer.
//
// The stages run in a fixed sequence with no branching. Stage-local failures
// degrade the state (empty chunks, empty retrieval, empty metrics) and the
// run always reaches a well-formed terminal state; only input validation
// aborts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/finflow/finflow/chunker"
	"github.com/finflow/finflow/embedder"
	"github.com/finflow/finflow/fetch"
	"github.com/finflow/finflow/llm"
	"github.com/finflow/finflow/pdftext"
	"github.com/finflow/finflow/vecstore"
)

// Config configures the pipeline.
type Config struct {
	// ChunkSize and ChunkOverlap control document splitting.
	// Defaults: 1200 / 150.
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`

	// TopK is the number of passages retrieved per question. Default: 6.
	// The answer stage independently trims its context to answerTopN.
	TopK int `json:"top_k" yaml:"top_k"`

	// Store configures the vector index the pipeline owns. Set
	// programmatically (ServiceConfig carries the YAML-facing copy).
	Store vecstore.Config `json:"-" yaml:"-"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = chunker.DefaultSize
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = chunker.DefaultOverlap
	}
	if c.TopK <= 0 {
		c.TopK = 6
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Deps are the external collaborators of a Pipeline. Embedder and Completer
// are required; Fetcher and Extractor default to their zero configurations.
type Deps struct {
	Fetcher   *fetch.Fetcher
	Extractor *pdftext.Extractor
	Embedder  embedder.Embedder
	Completer llm.Completer
}

// Pipeline runs the five fixed stages over a State.
type Pipeline struct {
	cfg      Config
	fetcher  *fetch.Fetcher
	extract  *pdftext.Extractor
	embed    embedder.Embedder
	complete llm.Completer
	logger   *slog.Logger

	mu    sync.RWMutex
	store vecstore.Store
}

// New opens the vector index and assembles a Pipeline.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	cfg.defaults()
	if deps.Embedder == nil {
		return nil, errors.New("pipeline: embedder is required")
	}
	if deps.Completer == nil {
		return nil, errors.New("pipeline: completer is required")
	}
	if deps.Fetcher == nil {
		deps.Fetcher = fetch.New(fetch.Config{Logger: cfg.Logger})
	}
	if deps.Extractor == nil {
		deps.Extractor = pdftext.New(pdftext.Config{Logger: cfg.Logger})
	}

	storeCfg := cfg.Store
	if storeCfg.Logger == nil {
		storeCfg.Logger = cfg.Logger
	}
	store, err := vecstore.Open(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open index: %w", err)
	}

	return &Pipeline{
		cfg:      cfg,
		fetcher:  deps.Fetcher,
		extract:  deps.Extractor,
		embed:    deps.Embedder,
		complete: deps.Completer,
		logger:   cfg.Logger,
		store:    store,
	}, nil
}

// Close releases the vector index.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.Close()
}

func (p *Pipeline) getStore() vecstore.Store {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store
}

// DropIndex deletes the vector index files and reopens an empty index.
// Dropping an already-empty index is a no-op.
func (p *Pipeline) DropIndex(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Close(); err != nil {
		p.logger.Warn("closing index before drop", "error", err)
	}
	if err := vecstore.Drop(p.cfg.Store.Path); err != nil {
		return fmt.Errorf("pipeline: drop index: %w", err)
	}

	storeCfg := p.cfg.Store
	if storeCfg.Logger == nil {
		storeCfg.Logger = p.logger
	}
	store, err := vecstore.Open(storeCfg)
	if err != nil {
		return fmt.Errorf("pipeline: reopen index: %w", err)
	}
	p.store = store
	p.logger.Info("index dropped and recreated", "path", p.cfg.Store.Path)
	return nil
}

// Run executes the fixed stage sequence over st. Stage failures degrade the
// state rather than aborting; only input validation returns an error.
func (p *Pipeline) Run(ctx context.Context, st *State) error {
	if len(st.Files) != len(st.Sources) {
		return fmt.Errorf("pipeline: %d files for %d sources", len(st.Files), len(st.Sources))
	}
	if st.TargetDoc < 0 || (len(st.Sources) > 0 && st.TargetDoc >= len(st.Sources)) {
		return fmt.Errorf("pipeline: target doc %d out of range", st.TargetDoc)
	}

	for _, stage := range []struct {
		name string
		fn   func(context.Context, *State) error
	}{
		{"ingest", p.ingest},
		{"embed_upsert", p.embedUpsert},
		{"retrieve", p.retrieve},
		{"extract_metrics", p.extractMetrics},
		{"answer", p.answer},
	} {
		if err := stage.fn(ctx, st); err != nil {
			p.logger.Error("stage failed", "stage", stage.name, "error", err)
		}
	}
	return nil
}

// SourceRef names one document for QuerySingle and Compare.
type SourceRef struct {
	File   string `json:"file,omitempty"`
	Source string `json:"source"`
}

// QuerySingle runs the full pipeline for one document and one question.
func (p *Pipeline) QuerySingle(ctx context.Context, ref SourceRef, q string) (*State, error) {
	st := &State{
		Files:   []string{ref.File},
		Sources: []string{ref.Source},
		Q:       q,
	}
	if err := p.Run(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// ingest resolves each source to a local file, extracts its text and chunks
// it. A document that fails any of those steps is skipped with a warning.
func (p *Pipeline) ingest(ctx context.Context, st *State) error {
	for i := range st.Sources {
		source := st.Sources[i]
		path, cleanup, err := p.fetcher.Resolve(ctx, st.Files[i], source)
		if err != nil {
			p.logger.Warn("skipping document: resolve failed", "source", source, "error", err)
			continue
		}

		text, err := p.extract.Extract(ctx, path)
		cleanup()
		if err != nil {
			p.logger.Warn("skipping document: extraction failed", "source", source, "error", err)
			continue
		}

		parts := chunker.Split(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
		if len(parts) == 0 {
			p.logger.Warn("document produced no chunks", "source", source)
			continue
		}

		docKey := DocKey(source)
		for seq, part := range parts {
			st.Chunks = append(st.Chunks, Chunk{
				ID:   ChunkID(docKey, part),
				Text: part,
				Meta: ChunkMeta{Doc: source, DocKey: docKey, DocIndex: i, Seq: seq},
			})
		}
		p.logger.Info("ingested document", "source", source, "chunks", len(parts))
	}
	return nil
}

// embedUpsert embeds every non-empty chunk and writes the batch to the index.
// Failure sets IndexOK=false; retrieval then works off whatever the index
// already holds.
func (p *Pipeline) embedUpsert(ctx context.Context, st *State) error {
	var texts []string
	var kept []Chunk
	for _, c := range st.Chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		texts = append(texts, c.Text)
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		p.logger.Warn("nothing to index")
		st.IndexOK = true
		return nil
	}

	vectors, err := p.embed.EmbedBatch(ctx, texts)
	if err != nil {
		st.IndexOK = false
		return fmt.Errorf("embed %d chunks: %w", len(texts), err)
	}

	entries := make([]vecstore.Entry, len(kept))
	for i, c := range kept {
		entries[i] = vecstore.Entry{
			ID:       c.ID,
			Doc:      c.Meta.Doc,
			DocKey:   c.Meta.DocKey,
			DocIndex: c.Meta.DocIndex,
			Seq:      c.Meta.Seq,
			Text:     c.Text,
			Vector:   vectors[i],
		}
	}
	if err := p.getStore().Upsert(ctx, entries); err != nil {
		st.IndexOK = false
		return fmt.Errorf("upsert %d chunks: %w", len(entries), err)
	}
	st.IndexOK = true
	return nil
}

// retrieve embeds the question and queries the index, restricted to the
// target document's partition. Failures leave Retrieved empty.
func (p *Pipeline) retrieve(ctx context.Context, st *State) error {
	if strings.TrimSpace(st.Q) == "" {
		return nil
	}

	qVec, err := p.embed.Embed(ctx, st.Q)
	if err != nil {
		return fmt.Errorf("embed question: %w", err)
	}

	docKey := ""
	if len(st.Sources) > 0 {
		docKey = DocKey(st.Sources[st.TargetDoc])
	}

	matches, err := p.getStore().Query(ctx, qVec, p.cfg.TopK, docKey)
	if err != nil {
		return fmt.Errorf("query index: %w", err)
	}
	for _, m := range matches {
		st.Retrieved = append(st.Retrieved, Retrieved{
			Text: m.Text,
			Meta: ChunkMeta{
				Doc:      m.Doc,
				DocKey:   m.DocKey,
				DocIndex: m.DocIndex,
				Seq:      m.Seq,
			},
			Score: m.Score,
		})
	}
	p.logger.Debug("retrieved passages", "question", st.Q, "count", len(st.Retrieved))
	return nil
}
