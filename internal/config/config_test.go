package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
datastore:
  provider: pinecone
  namespace: docs
pinecone:
  index_host: https://my-index.svc.pinecone.io
  batch_size: 50
  requests_per_second: 2.5
embedding:
  provider: openai
  model: text-embedding-3-small
  dimensions: 256
qdrant:
  host: qdrant.internal
  port: 6334
  collection: my-docs
chunking:
  token_size: 200
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"DATASTORE_PROVIDER", "DATASTORE_NAMESPACE",
		"PINECONE_INDEX_HOST", "PINECONE_BATCH_SIZE", "PINECONE_REQUESTS_PER_SECOND",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION",
		"CHUNK_TOKEN_SIZE", "LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"DATASTORE_PROVIDER":           "pinecone",
		"DATASTORE_NAMESPACE":          "docs",
		"PINECONE_INDEX_HOST":          "https://my-index.svc.pinecone.io",
		"PINECONE_BATCH_SIZE":          "50",
		"PINECONE_REQUESTS_PER_SECOND": "2.5",
		"EMBEDDING_PROVIDER":           "openai",
		"EMBEDDING_MODEL":              "text-embedding-3-small",
		"EMBEDDING_DIMENSIONS":         "256",
		"QDRANT_HOST":                  "qdrant.internal",
		"QDRANT_PORT":                  "6334",
		"QDRANT_COLLECTION":            "my-docs",
		"CHUNK_TOKEN_SIZE":             "200",
		"LOG_LEVEL":                    "debug",
		"LOG_FORMAT":                   "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
datastore:
  provider: qdrant
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading — it should NOT be overwritten.
	t.Setenv("DATASTORE_PROVIDER", "pinecone")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("DATASTORE_PROVIDER"); got != "pinecone" {
		t.Errorf("DATASTORE_PROVIDER: expected env override %q, got %q", "pinecone", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestFloat64Str(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float64
		want string
	}{
		{0.0, ""},
		{0.2, "0.2"},
		{2.5, "2.5"},
		{1.0, "1"},
	}
	for _, tt := range tests {
		if got := float64Str(tt.in); got != tt.want {
			t.Errorf("float64Str(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
