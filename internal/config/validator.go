package config

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "router.fallback")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateRegistry()...)
	errors = append(errors, c.validateRouter()...)
	errors = append(errors, c.validateMetrics()...)

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Empty level falls back to info.
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateRegistry() []ValidationError {
	var errors []ValidationError

	const maxDebounceMs = 10000
	if c.Registry.DebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "registry.debounce_ms",
			Value:   c.Registry.DebounceMs,
			Message: "must be non-negative",
		})
	}
	if c.Registry.DebounceMs > maxDebounceMs {
		errors = append(errors, ValidationError{
			Field:   "registry.debounce_ms",
			Value:   c.Registry.DebounceMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxDebounceMs),
		})
	}

	return errors
}

func (c *Config) validateRouter() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidFallbacks(), c.Router.Fallback) {
		errors = append(errors, ValidationError{
			Field:   "router.fallback",
			Value:   c.Router.Fallback,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidFallbacks(), ", ")),
		})
	}

	for i, pattern := range c.Router.LocalHosts {
		field := fmt.Sprintf("router.local_hosts[%d]", i)
		if strings.TrimSpace(pattern) == "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   pattern,
				Message: "pattern cannot be empty",
			})
			continue
		}
		if _, err := glob.Compile(pattern, '.'); err != nil {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}

	return errors
}

func (c *Config) validateMetrics() []ValidationError {
	var errors []ValidationError

	if !c.Metrics.Enabled {
		return errors
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
		errors = append(errors, ValidationError{
			Field:   "metrics.addr",
			Value:   c.Metrics.Addr,
			Message: "must be a host:port listen address",
		})
	}

	return errors
}
