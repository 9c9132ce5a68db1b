package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// DatabaseConfig selects the record store backend.
// Driver is "sqlite" or "postgres". For SQLite DSN is the database file
// path; for PostgreSQL a connection string.
type DatabaseConfig struct {
	Driver string `yaml:"Driver"`
	DSN    string `yaml:"DSN"`
}

// IngestConfig sets the per-artifact batch sizes. Zero values fall back to
// the ingester defaults.
type IngestConfig struct {
	MFTBatchSize      int `yaml:"MFTBatchSize"`
	AmcacheBatchSize  int `yaml:"AmcacheBatchSize"`
	SecurityBatchSize int `yaml:"SecurityBatchSize"`
}

// LoggingConfig controls file logging and the Sentry integration.
type LoggingConfig struct {
	LogFile      string `yaml:"LogFile"`
	SentryDSN    string `yaml:"SentryDSN"`
	EnableSentry bool   `yaml:"EnableSentry"`
}

// Config holds the full service configuration, loaded from YAML.
type Config struct {
	Database DatabaseConfig `yaml:"Database"`
	Ingest   IngestConfig   `yaml:"Ingest"`
	Logging  LoggingConfig  `yaml:"Logging"`
}

// Default returns the configuration used when no config file is given:
// a SQLite database in the working directory and default batch sizes.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "triage.db",
		},
	}
}

// Load reads and parses the config from a YAML file. Steps:
// 1. Read the raw file
// 2. Sanitize: strip BOM, replace tabs
// 3. Parse YAML into Config
// 4. Validate required fields
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	sanitized := sanitize(raw)

	var cfg Config
	if err := yaml.Unmarshal(sanitized, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// sanitize strips a UTF-8 BOM and replaces tabs, which YAML rejects.
func sanitize(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = bytes.ReplaceAll(data, []byte("\t"), []byte("  "))
	return data
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	case "":
		return fmt.Errorf("Database.Driver must not be empty")
	default:
		return fmt.Errorf("Database.Driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("Database.DSN must not be empty")
	}
	if c.Ingest.MFTBatchSize < 0 || c.Ingest.AmcacheBatchSize < 0 || c.Ingest.SecurityBatchSize < 0 {
		return fmt.Errorf("Ingest batch sizes must not be negative")
	}
	if c.Logging.EnableSentry && c.Logging.SentryDSN == "" {
		return fmt.Errorf("Logging.SentryDSN must be set when EnableSentry is true")
	}
	return nil
}
