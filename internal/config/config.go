// Package config provides configuration management for the outbound
// delivery engine.
package config

import (
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Delivery      DeliveryConfig      `mapstructure:"delivery"`
	Subscriptions SubscriptionsConfig `mapstructure:"subscriptions"`
	DeadLetter    DeadLetterConfig    `mapstructure:"dead_letter"`
	Providers     ProvidersConfig     `mapstructure:"providers"`
}

// ServerConfig holds the admin HTTP server settings.
type ServerConfig struct {
	// Host to bind the server to
	Host string `mapstructure:"host"`

	// Port to listen on
	Port int `mapstructure:"port"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`

	// Format: console or json
	Format string `mapstructure:"format"`
}

// DeliveryConfig holds retry, backoff, and timeout settings for webhook
// deliveries.
type DeliveryConfig struct {
	// MaxRetries is the retry budget after the initial attempt.
	MaxRetries int `mapstructure:"max_retries"`

	// Timeout is the hard per-attempt timeout.
	Timeout time.Duration `mapstructure:"timeout"`

	// BackoffInitial and BackoffMax bound the exponential schedule.
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`

	// Jitter enables full jitter on the backoff schedule.
	Jitter bool `mapstructure:"jitter"`

	// RateLimitRPS caps outbound requests per second per destination
	// host. Zero disables limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// StaticSubscription mirrors a subscription declared inline in the config
// file, the env-derived reference behavior.
type StaticSubscription struct {
	ID       string            `mapstructure:"id"`
	URL      string            `mapstructure:"url"`
	Events   []string          `mapstructure:"events"`
	Headers  map[string]string `mapstructure:"headers"`
	Secret   string            `mapstructure:"secret"`
	Active   bool              `mapstructure:"active"`
	TenantID string            `mapstructure:"tenant_id"`
}

// SubscriptionsConfig selects the subscription source and cache behavior.
// Exactly one of Static, File, or DBPath is used, checked in that order.
type SubscriptionsConfig struct {
	// CacheTTL is how long resolved subscription sets are trusted.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// Static declares subscriptions inline.
	Static []StaticSubscription `mapstructure:"static"`

	// File points at a YAML subscriptions file; changes to it clear the
	// cache immediately.
	File string `mapstructure:"file"`

	// DBPath points at the SQLite subscription table.
	DBPath string `mapstructure:"db_path"`
}

// DeadLetterConfig controls the optional retention janitor.
type DeadLetterConfig struct {
	// JanitorSchedule is a cron expression; empty disables pruning.
	JanitorSchedule string `mapstructure:"janitor_schedule"`

	// Retention is how long dead-letter entries are kept.
	Retention time.Duration `mapstructure:"retention"`
}

// ProvidersConfig holds automation-platform adapter settings.
type ProvidersConfig struct {
	Workflow WorkflowProviderConfig `mapstructure:"workflow"`
}

// WorkflowProviderConfig configures the workflow-automation adapter.
type WorkflowProviderConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}
