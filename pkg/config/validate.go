package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path of the field (e.g. "backends[0].url").
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every validation failure in a configuration so
// operators fix them in one pass.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the configuration, returning a ValidationError listing
// every problem, or nil when valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{"listen_address", "must not be empty"})
	}

	if len(cfg.Backends) == 0 {
		errs = append(errs, FieldError{"backends", "at least one backend is required"})
	}
	seen := make(map[string]bool, len(cfg.Backends))
	for i, b := range cfg.Backends {
		field := fmt.Sprintf("backends[%d]", i)
		if b.Name == "" {
			errs = append(errs, FieldError{field + ".name", "must not be empty"})
		} else if seen[b.Name] {
			errs = append(errs, FieldError{field + ".name", fmt.Sprintf("duplicate backend name %q", b.Name)})
		}
		seen[b.Name] = true

		if b.URL == "" {
			errs = append(errs, FieldError{field + ".url", "must not be empty"})
		} else if u, err := url.Parse(b.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{field + ".url", fmt.Sprintf("invalid URL %q", b.URL)})
		}
		if b.Timeout < 0 {
			errs = append(errs, FieldError{field + ".timeout", "must not be negative"})
		}
	}

	if cfg.Security.Enabled && cfg.Security.UsersFile == "" {
		errs = append(errs, FieldError{"security.users_file", "required when security is enabled"})
	}

	if cfg.Routing.MaxAttempts < 1 {
		errs = append(errs, FieldError{"routing.max_attempts", "must be at least 1"})
	}
	if cfg.Routing.ProbeTimeout <= 0 {
		errs = append(errs, FieldError{"routing.probe_timeout", "must be positive"})
	}
	for i, p := range cfg.Routing.ModelEndpoints {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, FieldError{
				fmt.Sprintf("routing.model_endpoints[%d]", i),
				fmt.Sprintf("path %q must start with /", p),
			})
		}
	}

	switch cfg.Audit.Backend {
	case "csv", "sqlite", "none":
	default:
		errs = append(errs, FieldError{
			"audit.backend",
			fmt.Sprintf("unknown sink %q (valid: csv, sqlite, none)", cfg.Audit.Backend),
		})
	}
	if cfg.Audit.RotateSchedule != "" && cfg.Audit.Backend != "csv" {
		errs = append(errs, FieldError{"audit.rotate_schedule", "rotation applies to the csv sink only"})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
