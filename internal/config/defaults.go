package config

import "time"

// Default configuration values.
const (
	// Server defaults.
	DefaultHost         = "localhost"
	DefaultPort         = 8480
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 120 * time.Second

	// Delivery defaults.
	DefaultMaxRetries     = 3
	DefaultTimeout        = 30 * time.Second
	DefaultBackoffInitial = 1 * time.Second
	DefaultBackoffMax     = 10 * time.Second

	// Subscriptions defaults.
	DefaultCacheTTL = 5 * time.Minute

	// Dead-letter defaults.
	DefaultRetention = 7 * 24 * time.Hour

	// Logging defaults.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Delivery: DeliveryConfig{
			MaxRetries:     DefaultMaxRetries,
			Timeout:        DefaultTimeout,
			BackoffInitial: DefaultBackoffInitial,
			BackoffMax:     DefaultBackoffMax,
		},
		Subscriptions: SubscriptionsConfig{
			CacheTTL: DefaultCacheTTL,
		},
		DeadLetter: DeadLetterConfig{
			Retention: DefaultRetention,
		},
	}
}
