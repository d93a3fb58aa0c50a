// Package config loads client configuration from a YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hivekv/hive/internal/backend"
)

// Config is the client configuration.
type Config struct {
	Backend  Backend `yaml:"backend"`
	Workers  int     `yaml:"workers"`
	LogLevel string  `yaml:"log_level"`
}

// Backend configures the embedded storage engine.
type Backend struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`

	// CompressionThreshold is the encoded-record size in bytes above
	// which payloads are compressed. Zero selects the default;
	// negative disables compression.
	CompressionThreshold int `yaml:"compression_threshold"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Backend: Backend{
			Kind: backend.KindSQLite,
			Path: "hive.db",
		},
		Workers:  0, // dispatcher default
		LogLevel: "info",
	}
}

// Load reads and validates a YAML configuration file. Absent fields
// keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values without touching the filesystem.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case backend.KindSQLite, backend.KindBolt, backend.KindLevelDB:
	default:
		return fmt.Errorf("unknown backend kind %q", c.Backend.Kind)
	}
	if c.Backend.Path == "" {
		return fmt.Errorf("backend path must not be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps the configured log level name to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
}
