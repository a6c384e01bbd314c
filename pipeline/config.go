package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/finflow/finflow/embedder"
	"github.com/finflow/finflow/fetch"
	"github.com/finflow/finflow/llm"
	"github.com/finflow/finflow/pdftext"
	"github.com/finflow/finflow/vecstore"
)

// ServiceConfig holds the full finflowd configuration.
type ServiceConfig struct {
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	Pipeline   Config          `yaml:"pipeline"`
	Store      vecstore.Config `yaml:"store"`
	Embedding  embedder.Config `yaml:"embedding"`
	Completion llm.Config      `yaml:"completion"`
	Fetch      fetch.Config    `yaml:"fetch"`
	Extract    pdftext.Config  `yaml:"extract"`
}

// DefaultServiceConfig returns sane defaults.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Listen:   ":8090",
		LogLevel: "info",
		Store: vecstore.Config{
			Path: "finflow.db",
		},
	}
}

// LoadServiceConfig reads and parses a YAML config file. Returns
// DefaultServiceConfig merged with the file.
func LoadServiceConfig(path string) (*ServiceConfig, error) {
	cfg := DefaultServiceConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *ServiceConfig) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	switch c.Store.Engine {
	case "", "exact", "vamana":
	default:
		return fmt.Errorf("store.engine %q unsupported (use exact or vamana)", c.Store.Engine)
	}
	if c.Pipeline.ChunkSize < 0 || c.Pipeline.ChunkOverlap < 0 {
		return fmt.Errorf("pipeline chunk_size/chunk_overlap must be >= 0")
	}
	if c.Pipeline.ChunkOverlap > 0 && c.Pipeline.ChunkSize > 0 &&
		c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		return fmt.Errorf("pipeline chunk_overlap must be smaller than chunk_size")
	}
	return nil
}
