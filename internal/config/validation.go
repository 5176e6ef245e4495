package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// KnownStages lists the filter stage names accepted in filters.stages.
var KnownStages = []string{"primary_key", "null", "name_similarity", "auto_increment"}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateSource()...)
	errors = append(errors, c.validateProfiling()...)
	errors = append(errors, c.validateFilters()...)
	errors = append(errors, c.validateOutput()...)
	errors = append(errors, c.validateLock()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateSource() ValidationErrors {
	var errors ValidationErrors
	src := &c.Source

	switch src.Kind {
	case "mysql", "postgres", "mssql":
		if src.DSN != "" {
			break
		}
		if src.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "source.host",
				Message: "host is required",
			})
		}
		if src.Port <= 0 || src.Port > 65535 {
			errors = append(errors, ValidationError{
				Field:   "source.port",
				Message: "port must be between 1 and 65535",
			})
		}
		if src.User == "" {
			errors = append(errors, ValidationError{
				Field:   "source.user",
				Message: "user is required",
			})
		}
		if src.Database == "" {
			errors = append(errors, ValidationError{
				Field:   "source.database",
				Message: "database name is required",
			})
		}
	case "sqlite", "csv":
		if src.Path == "" && src.DSN == "" {
			errors = append(errors, ValidationError{
				Field:   "source.path",
				Message: fmt.Sprintf("path is required for %s sources", src.Kind),
			})
		}
	case "":
		errors = append(errors, ValidationError{
			Field:   "source.kind",
			Message: "kind is required",
		})
	default:
		errors = append(errors, ValidationError{
			Field:   "source.kind",
			Message: "kind must be 'mysql', 'postgres', 'sqlite', 'mssql', or 'csv'",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[src.TLS] {
		errors = append(errors, ValidationError{
			Field:   "source.tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if src.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "source.max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if src.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "source.max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateProfiling() ValidationErrors {
	var errors ValidationErrors

	if c.Profiling.LengthBaseline < 0 {
		errors = append(errors, ValidationError{
			Field:   "profiling.length_baseline",
			Message: "length_baseline cannot be negative",
		})
	}

	if c.Profiling.HLLPrecision != 14 && c.Profiling.HLLPrecision != 16 {
		errors = append(errors, ValidationError{
			Field:   "profiling.hll_precision",
			Message: "hll_precision must be 14 or 16",
		})
	}

	if c.Profiling.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "profiling.workers",
			Message: "workers must be at least 1",
		})
	}

	for i, s := range c.Profiling.Suffixes {
		if s == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("profiling.suffixes[%d]", i),
				Message: "suffix cannot be empty",
			})
		}
	}

	return errors
}

func (c *Config) validateFilters() ValidationErrors {
	var errors ValidationErrors

	known := make(map[string]bool, len(KnownStages))
	for _, s := range KnownStages {
		known[s] = true
	}
	for i, s := range c.Filters.Stages {
		if !known[s] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("filters.stages[%d]", i),
				Message: fmt.Sprintf("unknown stage %q (must be one of %s)", s, strings.Join(KnownStages, ", ")),
			})
		}
	}

	if c.Filters.OnMissing != "abort" && c.Filters.OnMissing != "skip" {
		errors = append(errors, ValidationError{
			Field:   "filters.on_missing",
			Message: "on_missing must be 'abort' or 'skip'",
		})
	}

	if t := c.Filters.NameSimilarity.Threshold; t < 0 || t > 1 {
		errors = append(errors, ValidationError{
			Field:   "filters.name_similarity.threshold",
			Message: "threshold must be between 0 and 1",
		})
	}

	if c.Filters.AutoIncrement.MinLength < 1 {
		errors = append(errors, ValidationError{
			Field:   "filters.auto_increment.min_length",
			Message: "min_length must be at least 1",
		})
	}

	if len(c.Filters.AutoIncrement.StartValues) == 0 {
		errors = append(errors, ValidationError{
			Field:   "filters.auto_increment.start_values",
			Message: "at least one start value is required",
		})
	}

	return errors
}

func (c *Config) validateOutput() ValidationErrors {
	var errors ValidationErrors

	validFormats := map[string]bool{"text": true, "json": true, "yaml": true, "mermaid": true}
	if !validFormats[c.Output.Format] {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Message: "format must be 'text', 'json', 'yaml', or 'mermaid'",
		})
	}

	return errors
}

func (c *Config) validateLock() ValidationErrors {
	var errors ValidationErrors

	if !c.Lock.Enabled {
		return errors
	}

	if c.Source.Kind != "mysql" {
		errors = append(errors, ValidationError{
			Field:   "lock.enabled",
			Message: "run locking requires a mysql source",
		})
	}

	if c.Lock.TimeoutSeconds < -1 {
		errors = append(errors, ValidationError{
			Field:   "lock.timeout_seconds",
			Message: "timeout_seconds must be -1 (infinite) or greater",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
