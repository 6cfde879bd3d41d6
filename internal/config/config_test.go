package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1000, cfg.Recorder.MaxSamples)
	assert.Equal(t, time.Hour, cfg.Recorder.Window)
	assert.Equal(t, 5*time.Minute, cfg.Recorder.PruneInterval)
	assert.Equal(t, 5*time.Second, cfg.Recorder.SlowThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Collector.Interval)
	assert.Equal(t, time.Minute, cfg.Collector.WarmupInterval)
	assert.Equal(t, 60, cfg.Collector.WarmupThreshold)
	assert.Equal(t, 288, cfg.Cache.Capacity)
	assert.Equal(t, 3, cfg.Retention.HorizonYears)
	assert.Equal(t, 24*time.Hour, cfg.Retention.Interval)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nigrani.yaml")
	content := `
database:
  path: /var/lib/nigrani/metrics.db
collector:
  interval: 2m
cache:
  capacity: 100
location: Europe/Berlin
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/nigrani/metrics.db", cfg.Database.Path)
	assert.Equal(t, 2*time.Minute, cfg.Collector.Interval)
	assert.Equal(t, 100, cfg.Cache.Capacity)
	assert.Equal(t, time.Minute, cfg.Collector.WarmupInterval, "unset keys keep defaults")

	loc, err := cfg.TimeLocation()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.yaml"))
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("syntax error", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cache: [capacity"), 0o600))
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrParseFailed)
	})

	t.Run("invalid value", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("cache:\n  capacity: 0\n"), 0o600))
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero collector interval", mutate: func(c *Config) { c.Collector.Interval = 0 }},
		{name: "negative warmup threshold", mutate: func(c *Config) { c.Collector.WarmupThreshold = -1 }},
		{name: "zero warmup threshold", mutate: func(c *Config) { c.Collector.WarmupThreshold = 0 }},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{name: "zero retention horizon", mutate: func(c *Config) { c.Retention.HorizonYears = 0 }},
		{name: "zero max samples", mutate: func(c *Config) { c.Recorder.MaxSamples = 0 }},
		{name: "empty database path", mutate: func(c *Config) { c.Database.Path = "" }},
		{name: "unknown location", mutate: func(c *Config) { c.Location = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestValidateReportsFirstInvalidDuration(t *testing.T) {
	for i := 0; i < 20; i++ {
		cfg := Default()
		cfg.Recorder.Window = 0
		cfg.Query.Timeout = 0
		cfg.ActiveUserWindow = 0

		err := cfg.Validate()
		require.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "recorder.window must be positive")
	}
}

func TestYAMLOmitsSecret(t *testing.T) {
	cfg := Default()
	cfg.Auth.Secret = "super-secret-value"

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "super-secret-value")
	assert.Contains(t, string(out), "interval: 5m0s")
}
