// Package config holds factlex configuration, loaded from an optional
// YAML file. A missing file means defaults; a present but malformed file
// is an error, not a silent fallback.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all factlex settings.
type Config struct {
	// Pipeline settings
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Fact cache settings
	Cache CacheConfig `yaml:"cache"`

	// SQLite snapshot settings
	Database DatabaseConfig `yaml:"database"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// PipelineConfig tunes the chunked read -> lex pipeline.
type PipelineConfig struct {
	// ChunkSize is the read granularity in bytes. Tokenization results
	// never depend on it; it only trades memory against call overhead.
	ChunkSize int `yaml:"chunk_size"`
}

// CacheConfig tunes the fact cache.
type CacheConfig struct {
	// MaxFacts bounds the cache, measured in cached fact count.
	MaxFacts int `yaml:"max_facts"`
}

// DatabaseConfig configures fact snapshot persistence.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Verbose    bool `yaml:"verbose"`
	JSONFormat bool `yaml:"json_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{ChunkSize: 64 * 1024},
		Cache:    CacheConfig{MaxFacts: 16384},
		Database: DatabaseConfig{Path: "factlex.db"},
	}
}

// Load reads configuration from path. A missing file yields Default().
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Pipeline.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk_size must be positive, got %d", c.Pipeline.ChunkSize)
	}
	if c.Cache.MaxFacts <= 0 {
		return fmt.Errorf("config: max_facts must be positive, got %d", c.Cache.MaxFacts)
	}
	return nil
}
