package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FACESEARCH_CONFIG",
		"GOOGLE_SERVICE_ACCOUNT_JSON",
		"DRIVE_DOMAIN",
		"EMBEDDING_URL",
		"EMBEDDING_DIM",
		"EMBEDDING_MAX_IMAGE_EDGE",
		"FACE_MATCH_THRESHOLD",
		"SEARCH_CONCURRENCY",
		"SEARCH_TIMEOUT_SEC",
		"SIMILAR_LIMIT",
		"WEB_HOST",
		"WEB_PORT",
		"FACESEARCH_ENV",
		"LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Match.Threshold != 0.6 {
		t.Errorf("threshold = %f, want 0.6", cfg.Match.Threshold)
	}
	if cfg.Match.Concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", cfg.Match.Concurrency)
	}
	if cfg.Match.TimeoutSeconds != 120 {
		t.Errorf("timeout = %d, want 120", cfg.Match.TimeoutSeconds)
	}
	if cfg.Match.SimilarLimit != 10 {
		t.Errorf("similar limit = %d, want 10", cfg.Match.SimilarLimit)
	}
	if cfg.Embedding.Dim != 128 {
		t.Errorf("embedding dim = %d, want 128", cfg.Embedding.Dim)
	}
	if cfg.Embedding.MaxImageEdge != 1600 {
		t.Errorf("max image edge = %d, want 1600", cfg.Embedding.MaxImageEdge)
	}
	if cfg.Embedding.URL != "http://localhost:8000" {
		t.Errorf("embedding URL = %q", cfg.Embedding.URL)
	}
	if cfg.Drive.Domain != "https://drive.google.com" {
		t.Errorf("drive domain = %q", cfg.Drive.Domain)
	}
	if cfg.Web.Host != "0.0.0.0" || cfg.Web.Port != 8080 {
		t.Errorf("web defaults = %s:%d", cfg.Web.Host, cfg.Web.Port)
	}
	if cfg.Logging.Env != "dev" {
		t.Errorf("logging env = %q, want dev", cfg.Logging.Env)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FACE_MATCH_THRESHOLD", "0.45")
	t.Setenv("SEARCH_CONCURRENCY", "8")
	t.Setenv("DRIVE_DOMAIN", "https://drive.example.com")
	t.Setenv("EMBEDDING_URL", "http://embedder:9000")
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("FACESEARCH_ENV", "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Match.Threshold != 0.45 {
		t.Errorf("threshold = %f, want 0.45", cfg.Match.Threshold)
	}
	if cfg.Match.Concurrency != 8 {
		t.Errorf("concurrency = %d, want 8", cfg.Match.Concurrency)
	}
	if cfg.Drive.Domain != "https://drive.example.com" {
		t.Errorf("drive domain = %q", cfg.Drive.Domain)
	}
	if cfg.Embedding.URL != "http://embedder:9000" {
		t.Errorf("embedding URL = %q", cfg.Embedding.URL)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("web port = %d, want 9090", cfg.Web.Port)
	}
	if cfg.Logging.Env != "prod" {
		t.Errorf("logging env = %q, want prod", cfg.Logging.Env)
	}
}

func TestLoadInvalidEnvValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("FACE_MATCH_THRESHOLD", "not-a-number")
	t.Setenv("SEARCH_CONCURRENCY", "-3")
	t.Setenv("WEB_PORT", "zero")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Match.Threshold != 0.6 {
		t.Errorf("threshold = %f, want default 0.6", cfg.Match.Threshold)
	}
	if cfg.Match.Concurrency != 4 {
		t.Errorf("concurrency = %d, want default 4", cfg.Match.Concurrency)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("web port = %d, want default 8080", cfg.Web.Port)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "facesearch.yaml")
	content := `
drive:
  domain: https://drive.internal.example.com
match:
  threshold: 0.5
  concurrency: 6
web:
  host: 127.0.0.1
  port: 3000
logging:
  env: prod
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}
	t.Setenv("FACESEARCH_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Drive.Domain != "https://drive.internal.example.com" {
		t.Errorf("drive domain = %q", cfg.Drive.Domain)
	}
	if cfg.Match.Threshold != 0.5 || cfg.Match.Concurrency != 6 {
		t.Errorf("match config = %+v", cfg.Match)
	}
	if cfg.Web.Host != "127.0.0.1" || cfg.Web.Port != 3000 {
		t.Errorf("web config = %+v", cfg.Web)
	}
	if cfg.Logging.Env != "prod" || cfg.Logging.Level != "warn" {
		t.Errorf("logging config = %+v", cfg.Logging)
	}
	// File values that no env var overrides keep their defaults elsewhere.
	if cfg.Match.TimeoutSeconds != 120 {
		t.Errorf("timeout = %d, want default 120", cfg.Match.TimeoutSeconds)
	}
}

func TestLoadEnvWinsOverYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "facesearch.yaml")
	if err := os.WriteFile(path, []byte("match:\n  threshold: 0.5\n"), 0600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}
	t.Setenv("FACESEARCH_CONFIG", path)
	t.Setenv("FACE_MATCH_THRESHOLD", "0.7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Match.Threshold != 0.7 {
		t.Errorf("threshold = %f, env must win over the file", cfg.Match.Threshold)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("FACESEARCH_CONFIG", "/nonexistent/facesearch.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
