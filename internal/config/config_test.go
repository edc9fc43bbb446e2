package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Chunker.ChunkSize != 256 || cfg.Chunker.ChunkOverlap != 25 {
		t.Errorf("Chunker = %+v, want 256/25", cfg.Chunker)
	}
	if cfg.Retrieval.TopK != 20 {
		t.Errorf("TopK = %d, want 20", cfg.Retrieval.TopK)
	}
	if cfg.VectorStore.Type != "memory" {
		t.Errorf("VectorStore.Type = %s, want memory", cfg.VectorStore.Type)
	}
	if cfg.Generator.Model != "llama3" {
		t.Errorf("Generator.Model = %s, want llama3", cfg.Generator.Model)
	}
	if cfg.Document.DefaultType != "elevator pitch" {
		t.Errorf("DefaultType = %s", cfg.Document.DefaultType)
	}
	if cfg.Embedder.OpenAI.Timeout() != 30*time.Second {
		t.Errorf("embedder timeout = %v", cfg.Embedder.OpenAI.Timeout())
	}
	if cfg.Retrieval.QueryTemplate != "Create a %s for the patent." {
		t.Errorf("QueryTemplate = %q", cfg.Retrieval.QueryTemplate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunker.ChunkSize != 256 {
		t.Errorf("ChunkSize = %d", cfg.Chunker.ChunkSize)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `chunker:
  chunk_size: 100
  chunk_overlap: 10
embedder:
  model: tfidf
vector_store:
  type: qdrant
  qdrant:
    url: http://qdrant:6333
retrieval:
  top_k: 5
log:
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunker.ChunkSize != 100 || cfg.Chunker.ChunkOverlap != 10 {
		t.Errorf("Chunker = %+v", cfg.Chunker)
	}
	if cfg.Embedder.Model != "tfidf" || cfg.VectorStore.Qdrant.URL != "http://qdrant:6333" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.VectorStore.Qdrant.CollectionPrefix != "documents" {
		t.Errorf("CollectionPrefix = %q", cfg.VectorStore.Qdrant.CollectionPrefix)
	}
	if cfg.Retrieval.TopK != 5 || cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"overlap too large", "chunker:\n  chunk_size: 10\n  chunk_overlap: 10\n", "chunk_overlap"},
		{"negative top k", "retrieval:\n  top_k: -1\n", "top_k"},
		{"bad store", "vector_store:\n  type: redis\n", "vector_store.type"},
		{"bad template", "retrieval:\n  query_template: no placeholder\n", "query_template"},
		{"bad log format", "log:\n  format: xml\n", "log.format"},
		{"malformed", "chunker: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadFirstWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	cwd := filepath.Join(dir, "config.yaml")
	user := filepath.Join(dir, "home", ".config", "ragprompt", "config.yaml")

	cfg, used, err := loadFirst(cwd, user)
	if err != nil {
		t.Fatal(err)
	}
	if used != user {
		t.Errorf("used = %s, want %s", used, user)
	}
	if _, err := os.Stat(user); err != nil {
		t.Fatalf("defaults not written: %v", err)
	}
	reloaded, err := Load(user)
	if err != nil {
		t.Fatal(err)
	}
	if *reloaded != *cfg {
		t.Errorf("reloaded = %+v, want %+v", reloaded, cfg)
	}

	if err := os.WriteFile(cwd, []byte("retrieval:\n  top_k: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, used, err = loadFirst(cwd, user)
	if err != nil {
		t.Fatal(err)
	}
	if used != cwd || cfg.Retrieval.TopK != 3 {
		t.Errorf("used = %s, top_k = %d", used, cfg.Retrieval.TopK)
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("RAGPROMPT_TEST_KEY", "sk-test")
	c := OpenAIConfig{APIKeyEnv: "RAGPROMPT_TEST_KEY"}
	if c.APIKey() != "sk-test" {
		t.Errorf("APIKey = %q", c.APIKey())
	}
	if (OpenAIConfig{}).APIKey() != "" {
		t.Error("empty env name should give empty key")
	}
}
