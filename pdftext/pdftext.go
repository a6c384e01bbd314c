// Package pdftext extracts best-effort plain text from fact-sheet documents.
//
// PDF is the primary format: pages are parsed with pdfcpu and non-empty page
// texts are joined with newlines. When pdfcpu yields nothing usable, the
// extractor shells out to the poppler pdftotext tool as a fallback. A
// document that defeats both strategies degrades to empty text — the caller
// decides what to do with an empty document, extraction itself never fails
// the run.
//
// HTML, markdown and plain-text fact sheets are supported directly.
package pdftext

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config configures the extractor.
type Config struct {
	// PdftotextBin is the fallback extraction binary. Default: "pdftotext".
	PdftotextBin string `json:"pdftotext_bin" yaml:"pdftotext_bin"`

	// MaxFileSize is the maximum file size to process (default: 100 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.PdftotextBin == "" {
		c.PdftotextBin = "pdftotext"
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Extractor turns file paths into document text.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Extractor with the given configuration.
func New(cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{cfg: cfg, logger: cfg.Logger}
}

// Extract returns the best-effort full text of the document at path.
// Unknown extensions are treated as PDF. A PDF that yields no text through
// either strategy returns empty text and a nil error.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > e.cfg.MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), e.cfg.MaxFileSize)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return extractHTMLFile(path)
	case ".txt", ".md", ".markdown":
		return extractPlainFile(path)
	default:
		return e.extractPDFWithFallback(ctx, path), nil
	}
}

// extractPDFWithFallback runs the primary pdfcpu extraction and falls back
// to the external pdftotext tool when the primary path yields nothing.
func (e *Extractor) extractPDFWithFallback(ctx context.Context, path string) string {
	text, quality, err := extractPDF(path, e.logger)
	if err != nil {
		e.logger.Warn("primary PDF extraction failed, trying pdftotext",
			"path", path, "error", err)
	} else {
		e.logger.Info("primary PDF extraction done",
			"path", path,
			"pages", quality.PageCount,
			"chars", len(text),
			"chars_per_page", quality.CharsPerPage,
			"printable_ratio", quality.PrintableRatio)
		if strings.TrimSpace(text) != "" {
			return text
		}
		e.logger.Warn("primary PDF extraction produced no text, trying pdftotext", "path", path)
	}

	fallback, err := runPdftotext(ctx, e.cfg.PdftotextBin, path)
	if err != nil {
		e.logger.Error("pdftotext fallback failed", "path", path, "error", err)
		return ""
	}
	e.logger.Info("pdftotext fallback done", "path", path, "chars", len(fallback))
	if strings.TrimSpace(fallback) == "" {
		e.logger.Warn("pdftotext fallback produced no text", "path", path)
	}
	return fallback
}
