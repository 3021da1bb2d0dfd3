package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leefowlercu/batch-monitor/internal/logging"
)

// ValidationError represents a config validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// validStoreBackends lists recognized job store backends.
var validStoreBackends = map[string]bool{
	"sqlite": true,
	"redis":  true,
	"memory": true,
}

// validExportFormats lists recognized export formats.
var validExportFormats = map[string]bool{
	"json": true,
	"yaml": true,
	"toml": true,
	"xml":  true,
}

// Validate checks the configuration for errors.
// Returns ValidationErrors if validation fails.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be one of: debug, info, warn, error; got %q", cfg.LogLevel),
		})
	}

	if cfg.LogMaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "log_max_size_mb",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.LogMaxSizeMB),
		})
	}

	if cfg.LogMaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "log_max_backups",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.LogMaxBackups),
		})
	}

	if cfg.LogMaxAgeDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "log_max_age_days",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.LogMaxAgeDays),
		})
	}

	// Validate server config
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Server.Port),
		})
	}

	if cfg.Server.Bind == "" {
		errs = append(errs, ValidationError{
			Field:   "server.bind",
			Message: "must not be empty",
		})
	}

	if cfg.Server.ShutdownTimeout < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.shutdown_timeout",
			Message: fmt.Sprintf("must be at least 1 second, got %d", cfg.Server.ShutdownTimeout),
		})
	}

	if cfg.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit",
			Message: fmt.Sprintf("must be non-negative, got %g", cfg.Server.RateLimit),
		})
	}

	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_burst",
			Message: fmt.Sprintf("must be at least 1 when rate limiting is enabled, got %d", cfg.Server.RateBurst),
		})
	}

	// Validate store config
	if !validStoreBackends[cfg.Store.Backend] {
		errs = append(errs, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("must be one of: sqlite, redis, memory; got %q", cfg.Store.Backend),
		})
	}

	switch cfg.Store.Backend {
	case "sqlite":
		if cfg.Store.SQLitePath == "" {
			errs = append(errs, ValidationError{
				Field:   "store.sqlite_path",
				Message: "must not be empty when backend is sqlite",
			})
		}
		if cfg.Store.BusyTimeoutMs < 0 {
			errs = append(errs, ValidationError{
				Field:   "store.busy_timeout_ms",
				Message: fmt.Sprintf("must be non-negative, got %d", cfg.Store.BusyTimeoutMs),
			})
		}
	case "redis":
		if cfg.Store.Redis.Addr == "" {
			errs = append(errs, ValidationError{
				Field:   "store.redis.addr",
				Message: "must not be empty when backend is redis",
			})
		}
		if cfg.Store.Redis.DB < 0 {
			errs = append(errs, ValidationError{
				Field:   "store.redis.db",
				Message: fmt.Sprintf("must be non-negative, got %d", cfg.Store.Redis.DB),
			})
		}
	}

	// Validate export config
	if cfg.Export.Limit < 1 {
		errs = append(errs, ValidationError{
			Field:   "export.limit",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Export.Limit),
		})
	}

	if !validExportFormats[cfg.Export.Format] {
		errs = append(errs, ValidationError{
			Field:   "export.format",
			Message: fmt.Sprintf("must be one of: json, yaml, toml, xml; got %q", cfg.Export.Format),
		})
	}

	// Validate client config
	if !strings.HasPrefix(cfg.Client.URL, "http://") && !strings.HasPrefix(cfg.Client.URL, "https://") {
		errs = append(errs, ValidationError{
			Field:   "client.url",
			Message: fmt.Sprintf("must be an http or https URL, got %q", cfg.Client.URL),
		})
	}

	if cfg.Client.Timeout < 1 {
		errs = append(errs, ValidationError{
			Field:   "client.timeout",
			Message: fmt.Sprintf("must be at least 1 second, got %d", cfg.Client.Timeout),
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
