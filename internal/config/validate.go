package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Validate checks a configuration for contradictions and out-of-range
// values.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: "must be between 1 and 65535",
		})
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be one of debug, info, warn, error",
		})
	}
	switch cfg.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be console or json",
		})
	}

	if cfg.Delivery.MaxRetries < 0 {
		errs = append(errs, ValidationError{
			Field:   "delivery.max_retries",
			Message: "must not be negative",
		})
	}
	if cfg.Delivery.Timeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "delivery.timeout",
			Message: "must be positive",
		})
	}
	if cfg.Delivery.BackoffInitial <= 0 || cfg.Delivery.BackoffMax < cfg.Delivery.BackoffInitial {
		errs = append(errs, ValidationError{
			Field:   "delivery.backoff_initial",
			Message: "must be positive and no greater than backoff_max",
		})
	}

	if cfg.Subscriptions.CacheTTL <= 0 {
		errs = append(errs, ValidationError{
			Field:   "subscriptions.cache_ttl",
			Message: "must be positive",
		})
	}
	if cfg.Subscriptions.File != "" && cfg.Subscriptions.DBPath != "" {
		errs = append(errs, ValidationError{
			Field:   "subscriptions.file",
			Message: "file and db_path are mutually exclusive",
		})
	}

	if cfg.DeadLetter.JanitorSchedule != "" && cfg.DeadLetter.Retention <= 0 {
		errs = append(errs, ValidationError{
			Field:   "dead_letter.retention",
			Message: "must be positive when the janitor is scheduled",
		})
	}

	if cfg.Providers.Workflow.Enabled && cfg.Providers.Workflow.BaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "providers.workflow.base_url",
			Message: "required when the workflow provider is enabled",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
