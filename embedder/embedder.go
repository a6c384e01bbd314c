// Package embedder converts text to float32 vectors through any
// OpenAI-compatible embedding endpoint.
//
// The pipeline never talks to a concrete provider directly; it holds an
// Embedder and the backend (OpenAI, vLLM, Ollama, ONNX server) is chosen
// purely by configuration.
//
// Usage:
//
//	emb := embedder.New(embedder.Config{
//	    Endpoint: "https://api.openai.com",
//	    APIKey:   key,
//	    Model:    "text-embedding-3-small",
//	})
//	vec, err := emb.Embed(ctx, "What is the expense ratio?")
package embedder

import (
	"context"
	"log/slog"
	"time"
)

// DefaultDimension matches text-embedding-3-small output.
const DefaultDimension = 1536

// Embedder converts text to vectors.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embeddings for multiple texts in one HTTP call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension.
	// Returns 0 if not yet detected (first call not made).
	Dimension() int

	// Model returns the model name.
	Model() string
}

// Config configures the embedding client.
type Config struct {
	// Endpoint is the base URL of the embedding server. If empty, a noop
	// embedder producing zero vectors is returned.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// APIKey is sent as a Bearer token when non-empty.
	APIKey string `json:"-" yaml:"-"`

	// Model is the model name sent in the request.
	// Default: "text-embedding-3-small".
	Model string `json:"model" yaml:"model"`

	// Dimension is the expected vector dimension. 0 means auto-detect on
	// first call (the noop embedder falls back to DefaultDimension).
	Dimension int `json:"dimension" yaml:"dimension"`

	// BatchSize is the maximum number of texts per HTTP request. Default: 32.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Timeout per HTTP request. Default: 30s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = "text-embedding-3-small"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates an Embedder from config. If Endpoint is empty, returns a
// noop embedder that produces zero vectors of the configured dimension.
func New(cfg Config) Embedder {
	cfg.defaults()
	if cfg.Endpoint == "" {
		dim := cfg.Dimension
		if dim <= 0 {
			dim = DefaultDimension
		}
		return &noopEmbedder{dim: dim, model: cfg.Model}
	}
	return newClient(cfg)
}

// noopEmbedder returns zero vectors — useful for testing without a server.
type noopEmbedder struct {
	dim   int
	model string
}

func (n *noopEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, n.dim), nil
}

func (n *noopEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, n.dim)
	}
	return out, nil
}

func (n *noopEmbedder) Dimension() int { return n.dim }
func (n *noopEmbedder) Model() string  { return n.model }
