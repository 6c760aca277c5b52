package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
environment: production
log_level: warn
database_type: postgres
database_url: postgres://localhost/media
spool_dir: /tmp/spool
inbox_dir: /data/inbox
max_concurrent: 4
locations:
  - id: primary
    label: Primary SSD
    root: /data/primary
    enabled: true
    priority: 1
  - id: archive
    root: /data/archive
    enabled: false
    priority: 9
    max_size_bytes: 1000000000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "postgres", cfg.DatabaseType)
	assert.Equal(t, "postgres://localhost/media", cfg.DatabaseURL)
	assert.Equal(t, "/data/inbox", cfg.InboxDir)
	assert.Equal(t, 4, cfg.MaxConcurrent)

	locs := cfg.StorageLocations()
	require.Len(t, locs, 2)
	assert.Equal(t, "primary", locs[0].ID)
	assert.Equal(t, "Primary SSD", locs[0].Label)
	assert.True(t, locs[0].Enabled)
	assert.Equal(t, int64(1000000000), locs[1].MaxSizeBytes)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
locations:
  - id: primary
    root: /data/primary
    enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, 2, cfg.MaxConcurrent)
	assert.Equal(t, "ffmpeg", cfg.FFmpegBin)
	assert.Equal(t, "ffprobe", cfg.FFprobeBin)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MEDIA_ENGINE_LOG_LEVEL", "debug")
	t.Setenv("MEDIA_ENGINE_STORAGE_ROOT", "/data/primary")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.Locations, 1)
	assert.Equal(t, "default", cfg.Locations[0].ID)
	assert.Equal(t, "/data/primary", cfg.Locations[0].Root)
	assert.True(t, cfg.Locations[0].Enabled)
}

func TestLoadFromEnvRequiresStorage(t *testing.T) {
	_, err := LoadFromEnv()
	assert.ErrorContains(t, err, "storage location")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseType:  "memory",
			MaxConcurrent: 2,
			Locations:     []LocationConfig{{ID: "a", Root: "/data/a"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad database type", func(c *Config) { c.DatabaseType = "sqlite" }, "database_type"},
		{"postgres without url", func(c *Config) { c.DatabaseType = "postgres" }, "database_url"},
		{"no locations", func(c *Config) { c.Locations = nil }, "storage location"},
		{"location without id", func(c *Config) { c.Locations[0].ID = "" }, "id is required"},
		{"location without root", func(c *Config) { c.Locations[0].Root = "" }, "no root"},
		{"duplicate location id", func(c *Config) {
			c.Locations = append(c.Locations, LocationConfig{ID: "a", Root: "/data/b"})
		}, "duplicate"},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }, "max_concurrent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
