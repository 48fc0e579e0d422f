package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Drive     DriveConfig     `yaml:"drive"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Match     MatchConfig     `yaml:"match"`
	Web       WebConfig       `yaml:"web"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type DriveConfig struct {
	// ServiceAccount is the Google service account credentials, either the
	// JSON document itself or a path to a file containing it.
	ServiceAccount string `yaml:"service_account"`
	// Domain is the public Drive domain used when generating photo links.
	// Defaults to https://drive.google.com.
	Domain string `yaml:"domain"`
}

type EmbeddingConfig struct {
	URL          string `yaml:"url"`            // defaults to http://localhost:8000
	Dim          int    `yaml:"dim"`            // defaults to 128
	MaxImageEdge int    `yaml:"max_image_edge"` // downscale bound for uploads, defaults to 1600
}

type MatchConfig struct {
	Threshold      float64 `yaml:"threshold"`           // maximum face distance, defaults to 0.6
	Concurrency    int     `yaml:"concurrency"`         // candidate worker pool size, defaults to 4
	TimeoutSeconds int     `yaml:"timeout_sec"`         // whole-pipeline timeout, defaults to 120
	SimilarLimit   int     `yaml:"similar_limit"`       // max results for similar-photo lookups, defaults to 10
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LoggingConfig struct {
	Env   string `yaml:"env"`   // prod or dev, defaults to dev
	Level string `yaml:"level"` // debug, info, warn, error
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString returns the environment variable value or the fallback when unset.
func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load builds the configuration from an optional YAML file (FACESEARCH_CONFIG)
// with environment variables layered on top. Env vars always win so deployments
// can override a shared config file without editing it.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("FACESEARCH_CONFIG"); path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator's own env
		if err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
		}
	}

	cfg.Drive.ServiceAccount = envString("GOOGLE_SERVICE_ACCOUNT_JSON", cfg.Drive.ServiceAccount)
	cfg.Drive.Domain = envString("DRIVE_DOMAIN", cfg.Drive.Domain)
	cfg.Embedding.URL = envString("EMBEDDING_URL", cfg.Embedding.URL)
	cfg.Embedding.Dim = envInt("EMBEDDING_DIM", orInt(cfg.Embedding.Dim, 128))
	cfg.Embedding.MaxImageEdge = envInt("EMBEDDING_MAX_IMAGE_EDGE", orInt(cfg.Embedding.MaxImageEdge, 1600))
	cfg.Match.Threshold = envFloat("FACE_MATCH_THRESHOLD", orFloat(cfg.Match.Threshold, 0.6))
	cfg.Match.Concurrency = envInt("SEARCH_CONCURRENCY", orInt(cfg.Match.Concurrency, 4))
	cfg.Match.TimeoutSeconds = envInt("SEARCH_TIMEOUT_SEC", orInt(cfg.Match.TimeoutSeconds, 120))
	cfg.Match.SimilarLimit = envInt("SIMILAR_LIMIT", orInt(cfg.Match.SimilarLimit, 10))
	cfg.Web.Host = envString("WEB_HOST", orString(cfg.Web.Host, "0.0.0.0"))
	cfg.Web.Port = envInt("WEB_PORT", orInt(cfg.Web.Port, 8080))
	cfg.Logging.Env = envString("FACESEARCH_ENV", orString(cfg.Logging.Env, "dev"))
	cfg.Logging.Level = envString("LOG_LEVEL", cfg.Logging.Level)

	if cfg.Drive.Domain == "" {
		cfg.Drive.Domain = "https://drive.google.com"
	}
	if cfg.Embedding.URL == "" {
		cfg.Embedding.URL = "http://localhost:8000"
	}

	return cfg, nil
}

func orInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func orFloat(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

func orString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
