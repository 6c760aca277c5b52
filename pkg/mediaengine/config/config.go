// Package config loads engine configuration from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/openscribe/media-engine/pkg/mediaengine/storage"
)

// Config holds everything the wiring binary needs to assemble the engine.
type Config struct {
	Environment string `yaml:"environment" env:"MEDIA_ENGINE_ENV" env-default:"development"`
	LogLevel    string `yaml:"log_level" env:"MEDIA_ENGINE_LOG_LEVEL" env-default:"info"`

	// Database configuration
	DatabaseType string `yaml:"database_type" env:"MEDIA_ENGINE_DATABASE_TYPE" env-default:"memory"`
	DatabaseURL  string `yaml:"database_url" env:"MEDIA_ENGINE_DATABASE_URL"`

	// Pipeline configuration
	SpoolDir      string `yaml:"spool_dir" env:"MEDIA_ENGINE_SPOOL_DIR"`
	InboxDir      string `yaml:"inbox_dir" env:"MEDIA_ENGINE_INBOX_DIR"`
	MaxConcurrent int    `yaml:"max_concurrent" env:"MEDIA_ENGINE_MAX_CONCURRENT" env-default:"2"`

	// Toolchain binaries
	FFmpegBin  string `yaml:"ffmpeg_bin" env:"MEDIA_ENGINE_FFMPEG_BIN" env-default:"ffmpeg"`
	FFprobeBin string `yaml:"ffprobe_bin" env:"MEDIA_ENGINE_FFPROBE_BIN" env-default:"ffprobe"`

	// Storage locations (YAML only; at least one required)
	Locations []LocationConfig `yaml:"locations"`
}

// LocationConfig is one configured storage root.
type LocationConfig struct {
	ID           string `yaml:"id"`
	Label        string `yaml:"label"`
	Root         string `yaml:"root"`
	Enabled      bool   `yaml:"enabled"`
	Priority     int    `yaml:"priority"`
	MaxSizeBytes int64  `yaml:"max_size_bytes"`
}

// Load reads the YAML file at path, then applies environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a Config from environment variables alone. A single
// storage location can be supplied via MEDIA_ENGINE_STORAGE_ROOT.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if root := os.Getenv("MEDIA_ENGINE_STORAGE_ROOT"); root != "" {
		cfg.Locations = append(cfg.Locations, LocationConfig{
			ID:      "default",
			Label:   "Default",
			Root:    root,
			Enabled: true,
		})
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	if len(c.Locations) == 0 {
		return errors.New("at least one storage location is required")
	}
	seen := make(map[string]bool)
	for _, loc := range c.Locations {
		if loc.ID == "" {
			return errors.New("storage location id is required")
		}
		if seen[loc.ID] {
			return fmt.Errorf("duplicate storage location id %q", loc.ID)
		}
		seen[loc.ID] = true
		if loc.Root == "" {
			return fmt.Errorf("storage location %q has no root", loc.ID)
		}
	}
	if c.MaxConcurrent < 1 {
		return errors.New("max_concurrent must be at least 1")
	}
	return nil
}

// StorageLocations converts the configured locations to registry entries.
func (c *Config) StorageLocations() []storage.Location {
	out := make([]storage.Location, 0, len(c.Locations))
	for _, loc := range c.Locations {
		out = append(out, storage.Location{
			ID:           loc.ID,
			Label:        loc.Label,
			Root:         loc.Root,
			Enabled:      loc.Enabled,
			Priority:     loc.Priority,
			MaxSizeBytes: loc.MaxSizeBytes,
		})
	}
	return out
}
