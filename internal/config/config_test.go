package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{ConfigFile: writeConfig(t, "")})
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultMaxRetries, cfg.Delivery.MaxRetries)
	assert.Equal(t, DefaultTimeout, cfg.Delivery.Timeout)
	assert.Equal(t, DefaultBackoffInitial, cfg.Delivery.BackoffInitial)
	assert.Equal(t, DefaultBackoffMax, cfg.Delivery.BackoffMax)
	assert.False(t, cfg.Delivery.Jitter)
	assert.Equal(t, DefaultCacheTTL, cfg.Subscriptions.CacheTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileOverrides(t *testing.T) {
	cfg, err := Load(LoadOptions{ConfigFile: writeConfig(t, `
server:
  port: 9000
delivery:
  max_retries: 5
  timeout: 10s
  backoff_initial: 500ms
  backoff_max: 5s
subscriptions:
  cache_ttl: 1m
  static:
    - id: billing
      url: https://hooks.example.com/billing
      events: ["payment.*"]
      active: true
`)})
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Delivery.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Delivery.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Delivery.BackoffInitial)
	assert.Equal(t, time.Minute, cfg.Subscriptions.CacheTTL)
	require.Len(t, cfg.Subscriptions.Static, 1)
	assert.Equal(t, "billing", cfg.Subscriptions.Static[0].ID)
	assert.True(t, cfg.Subscriptions.Static[0].Active)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("OUTBOUND_SERVER_PORT", "9999")

	cfg, err := Load(LoadOptions{ConfigFile: writeConfig(t, "")})
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"negative retries", func(c *Config) { c.Delivery.MaxRetries = -1 }, "delivery.max_retries"},
		{"zero timeout", func(c *Config) { c.Delivery.Timeout = 0 }, "delivery.timeout"},
		{"backoff inverted", func(c *Config) {
			c.Delivery.BackoffInitial = time.Minute
			c.Delivery.BackoffMax = time.Second
		}, "delivery.backoff_initial"},
		{"zero ttl", func(c *Config) { c.Subscriptions.CacheTTL = 0 }, "subscriptions.cache_ttl"},
		{"both sources", func(c *Config) {
			c.Subscriptions.File = "subs.yaml"
			c.Subscriptions.DBPath = "subs.db"
		}, "subscriptions.file"},
		{"janitor without retention", func(c *Config) {
			c.DeadLetter.JanitorSchedule = "@hourly"
			c.DeadLetter.Retention = 0
		}, "dead_letter.retention"},
		{"workflow provider without url", func(c *Config) {
			c.Providers.Workflow.Enabled = true
		}, "providers.workflow.base_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outbound.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
