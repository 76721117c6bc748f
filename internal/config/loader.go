package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit config file path; when empty the usual
	// search paths are tried.
	ConfigFile string

	// EnvPrefix for environment overrides (default "OUTBOUND").
	EnvPrefix string
}

// Load reads configuration from file and environment, applying defaults and
// validating the result.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v, Default())

	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "OUTBOUND"
	}
	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("outbound")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/outbound")
		v.AddConfigPath("/etc/outbound")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("delivery.max_retries", d.Delivery.MaxRetries)
	v.SetDefault("delivery.timeout", d.Delivery.Timeout)
	v.SetDefault("delivery.backoff_initial", d.Delivery.BackoffInitial)
	v.SetDefault("delivery.backoff_max", d.Delivery.BackoffMax)
	v.SetDefault("delivery.jitter", d.Delivery.Jitter)
	v.SetDefault("delivery.rate_limit_rps", d.Delivery.RateLimitRPS)
	v.SetDefault("delivery.rate_limit_burst", d.Delivery.RateLimitBurst)

	v.SetDefault("subscriptions.cache_ttl", d.Subscriptions.CacheTTL)
	v.SetDefault("subscriptions.file", d.Subscriptions.File)
	v.SetDefault("subscriptions.db_path", d.Subscriptions.DBPath)

	v.SetDefault("dead_letter.janitor_schedule", d.DeadLetter.JanitorSchedule)
	v.SetDefault("dead_letter.retention", d.DeadLetter.Retention)

	v.SetDefault("providers.workflow.enabled", d.Providers.Workflow.Enabled)
	v.SetDefault("providers.workflow.base_url", d.Providers.Workflow.BaseURL)
	v.SetDefault("providers.workflow.api_key", d.Providers.Workflow.APIKey)
	v.SetDefault("providers.workflow.timeout", d.Providers.Workflow.Timeout)
}
