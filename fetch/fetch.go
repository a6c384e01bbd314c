// Package fetch resolves a fact-sheet source to a local file path.
//
// A pipeline input is either a pre-supplied local path or a source URL; in
// the latter case the document is downloaded into a temporary file. Every
// download is bounded by a timeout and a size cap.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

// ErrTimeout marks a download that exceeded its deadline.
var ErrTimeout = errors.New("fetch: timeout")

// Config configures the fetcher.
type Config struct {
	// Timeout bounds a single download. Default: 30s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxBytes caps the downloaded size. Default: 50 MB.
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 50 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher downloads remote fact sheets.
type Fetcher struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// New creates a Fetcher with the given configuration.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: cfg.Logger,
	}
}

// Resolve returns a local path for the document. A non-empty file wins; an
// http(s) source is downloaded to a temp file. The returned cleanup removes
// any temp file and is safe to call always.
func (f *Fetcher) Resolve(ctx context.Context, file, source string) (string, func(), error) {
	noop := func() {}
	if file != "" {
		return file, noop, nil
	}
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		// A bare filename source with no file path: use it as a path.
		return source, noop, nil
	}

	p, err := f.download(ctx, source)
	if err != nil {
		return "", noop, err
	}
	return p, func() { os.Remove(p) }, nil
}

func (f *Fetcher) download(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return "", fmt.Errorf("fetch %s: %w", url, ErrTimeout)
		}
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "factsheet-*"+suffixFor(url))
	if err != nil {
		return "", fmt.Errorf("fetch %s: temp file: %w", url, err)
	}

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, f.cfg.MaxBytes))
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return "", fmt.Errorf("fetch %s: %w", url, ErrTimeout)
		}
		return "", fmt.Errorf("fetch %s: read body: %w", url, err)
	}
	if closeErr != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("fetch %s: close temp: %w", url, closeErr)
	}

	f.logger.Info("downloaded fact sheet", "url", url, "path", tmp.Name(), "bytes", n)
	return tmp.Name(), nil
}

// suffixFor keeps the URL's extension on the temp file so the extractor can
// dispatch on it; anything unrecognised is treated as PDF.
func suffixFor(url string) string {
	switch strings.ToLower(path.Ext(strings.SplitN(url, "?", 2)[0])) {
	case ".html", ".htm":
		return ".html"
	case ".txt":
		return ".txt"
	case ".md":
		return ".md"
	default:
		return ".pdf"
	}
}
