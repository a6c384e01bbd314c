package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadServiceConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finflow.yaml")
	content := `
listen: ":9001"
log_level: debug
store:
  path: /tmp/idx.db
  engine: exact
pipeline:
  chunk_size: 800
  chunk_overlap: 100
  top_k: 3
embedding:
  endpoint: https://api.openai.com
  model: text-embedding-3-small
completion:
  model: gpt-5-nano
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadServiceConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9001" {
		t.Fatalf("listen = %q", cfg.Listen)
	}
	if cfg.Store.Path != "/tmp/idx.db" {
		t.Fatalf("store path = %q", cfg.Store.Path)
	}
	if cfg.Pipeline.ChunkSize != 800 || cfg.Pipeline.TopK != 3 {
		t.Fatalf("pipeline config = %+v", cfg.Pipeline)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Fatalf("embedding model = %q", cfg.Embedding.Model)
	}
}

func TestLoadServiceConfigMissingFile(t *testing.T) {
	if _, err := LoadServiceConfig("/no/such/finflow.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestServiceConfigValidate(t *testing.T) {
	cfg := DefaultServiceConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	bad := DefaultServiceConfig()
	bad.Store.Path = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for empty store path")
	}

	bad = DefaultServiceConfig()
	bad.Store.Engine = "faiss"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown engine")
	}

	bad = DefaultServiceConfig()
	bad.Pipeline.ChunkSize = 100
	bad.Pipeline.ChunkOverlap = 100
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for overlap >= size")
	}
}
