// Package llm provides a chat-completion client for any OpenAI-compatible
// server. The pipeline holds a Completer; the backend (OpenAI, vLLM, Ollama)
// is chosen purely by configuration.
package llm

import (
	"context"
	"log/slog"
	"time"
)

// Completer turns a single text prompt into a text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config configures the completion client.
type Config struct {
	// Endpoint is the base URL of the chat-completion server. If empty,
	// a noop completer returning empty text is returned.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// APIKey is sent as a Bearer token when non-empty.
	APIKey string `json:"-" yaml:"-"`

	// Model is the model name sent in the request. Default: "gpt-5-nano".
	Model string `json:"model" yaml:"model"`

	// MaxTokens caps the completion length. 0 leaves it to the server.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Timeout per HTTP request. Default: 60s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = "gpt-5-nano"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates a Completer from config. If Endpoint is empty, returns a noop
// completer so callers degrade to empty output instead of crashing.
func New(cfg Config) Completer {
	cfg.defaults()
	if cfg.Endpoint == "" {
		cfg.Logger.Warn("no completion endpoint configured, using noop completer")
		return noopCompleter{}
	}
	return newClient(cfg)
}

type noopCompleter struct{}

func (noopCompleter) Complete(_ context.Context, _ string) (string, error) {
	return "", nil
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
