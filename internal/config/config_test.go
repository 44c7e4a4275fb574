package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Job.Name)
	assert.Equal(t, 1500*time.Millisecond, cfg.Delay())
	assert.Equal(t, 30*time.Second, cfg.RemoteTimeout())
	assert.Equal(t, 25, cfg.Harvest.FlushEvery)
	assert.Equal(t, 90, cfg.Quota.SafetyMarginPct)
	assert.Equal(t, "file", cfg.Checkpoint.Backend)
	assert.Equal(t, "noop", cfg.Notify.Backend)
	assert.False(t, cfg.Server.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
job:
  name: authors-tier1
remote:
  base_url: http://enrich.internal:9090
harvest:
  delay_ms: 2000
  flush_every: 10
quota:
  daily_ceiling: 5000
checkpoint:
  backend: file
  path: /tmp/authors.json
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "authors-tier1", cfg.Job.Name)
	assert.Equal(t, "http://enrich.internal:9090", cfg.Remote.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Delay())
	assert.Equal(t, 10, cfg.Harvest.FlushEvery)
	assert.Equal(t, 5000, cfg.Quota.DailyCeiling)
	assert.Equal(t, "/tmp/authors.json", cfg.Checkpoint.Path)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing job name", func(c *Config) { c.Job.Name = "" }, "job.name"},
		{"bad timeout", func(c *Config) { c.Remote.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"negative delay", func(c *Config) { c.Harvest.DelayMs = -1 }, "delay_ms"},
		{"zero flush cadence", func(c *Config) { c.Harvest.FlushEvery = 0 }, "flush_every"},
		{"margin out of range", func(c *Config) { c.Quota.SafetyMarginPct = 120 }, "safety_margin_pct"},
		{"unknown checkpoint backend", func(c *Config) { c.Checkpoint.Backend = "etcd" }, "checkpoint backend"},
		{"postgres without dsn", func(c *Config) { c.Checkpoint.Backend = "postgres" }, "checkpoint.dsn"},
		{"gcs without bucket", func(c *Config) { c.Checkpoint.Backend = "gcs" }, "checkpoint.bucket"},
		{"pubsub without topic", func(c *Config) { c.Notify.Backend = "pubsub" }, "notify.project_id"},
		{"server without port", func(c *Config) { c.Server.Enabled = true; c.Server.Port = 0 }, "server.port"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
