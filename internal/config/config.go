// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package config loads Shelfwise configuration using Koanf v2 with layered
// sources (highest priority wins):
//
//  1. Environment variables (SHELFWISE_* or section-prefixed, see envTransform)
//  2. Optional YAML config file (config.yaml or CONFIG_PATH)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/shelfwise/config.yaml",
	"/etc/shelfwise/config.yml",
}

// Config is the root application configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Artifacts    ArtifactsConfig    `koanf:"artifacts"`
	Forecasts    ForecastsConfig    `koanf:"forecasts"`
	Embedding    EmbeddingConfig    `koanf:"embedding"`
	Intelligence IntelligenceConfig `koanf:"intelligence"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DatabaseConfig holds DuckDB settings for the catalog store.
type DatabaseConfig struct {
	Path           string `koanf:"path" validate:"required"`
	MaxMemory      string `koanf:"max_memory"`
	Threads        int    `koanf:"threads"`
	SeedSampleData bool   `koanf:"seed_sample_data"`
}

// ArtifactsConfig holds trained-model persistence settings.
type ArtifactsConfig struct {
	Dir          string `koanf:"dir" validate:"required"`
	KeepVersions int    `koanf:"keep_versions" validate:"min=1"`
}

// ForecastsConfig holds the BadgerDB forecast snapshot store settings.
type ForecastsConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	// Provider is "local" (deterministic hashing embedder, offline) or
	// "openai" (any OpenAI-compatible /embeddings endpoint).
	Provider string `koanf:"provider" validate:"oneof=local openai"`

	// Dimension applies to the local provider.
	Dimension int `koanf:"dimension" validate:"min=8"`

	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`

	// RequestsPerSecond caps outbound embedding calls for the remote
	// provider. 0 disables the limiter.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// IntelligenceConfig tunes the model lifecycle.
type IntelligenceConfig struct {
	BuildOnStartup  bool          `koanf:"build_on_startup"`
	RebuildInterval time.Duration `koanf:"rebuild_interval"`

	// MinBorrowEvents gates demand predictor training.
	MinBorrowEvents int `koanf:"min_borrow_events" validate:"min=1"`

	// MaxVocabulary caps the TF-IDF term space.
	MaxVocabulary int `koanf:"max_vocabulary" validate:"min=100"`

	// MinQueryLength rejects degenerate semantic search queries.
	MinQueryLength int `koanf:"min_query_length" validate:"min=1"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before file and env
// layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8974,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Path:      "/data/shelfwise.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Artifacts: ArtifactsConfig{
			Dir:          "/data/models",
			KeepVersions: 2,
		},
		Forecasts: ForecastsConfig{
			Path: "/data/forecasts",
		},
		Embedding: EmbeddingConfig{
			Provider:          "local",
			Dimension:         256,
			Model:             "text-embedding-3-small",
			BaseURL:           "https://api.openai.com/v1",
			RequestsPerSecond: 2,
		},
		Intelligence: IntelligenceConfig{
			BuildOnStartup:  true,
			RebuildInterval: 24 * time.Hour,
			MinBorrowEvents: 100,
			MaxVocabulary:   10000,
			MinQueryLength:  2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration against struct-level constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		return ""
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envSections maps environment variable prefixes to config sections.
// SERVER_PORT -> server.port, EMBEDDING_API_KEY -> embedding.api_key.
var envSections = map[string]string{
	"SERVER_":       "server",
	"DATABASE_":     "database",
	"ARTIFACTS_":    "artifacts",
	"FORECASTS_":    "forecasts",
	"EMBEDDING_":    "embedding",
	"INTELLIGENCE_": "intelligence",
	"LOGGING_":      "logging",
}

// envTransform converts a recognized environment variable name to a koanf
// path. Unrecognized variables are ignored so unrelated process environment
// does not leak into the configuration.
func envTransform(s string) string {
	s = strings.TrimPrefix(s, "SHELFWISE_")
	for prefix, section := range envSections {
		if strings.HasPrefix(s, prefix) {
			key := strings.ToLower(strings.TrimPrefix(s, prefix))
			return section + "." + key
		}
	}
	return ""
}
