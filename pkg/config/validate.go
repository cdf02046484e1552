package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration
// field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g.,
	// "storage.path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
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

// Validate validates the entire configuration and returns a
// ValidationError if any validation rules fail. All validation errors
// are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateWorkflow(&cfg.Workflow)...)
	errs = append(errs, validateSLA(&cfg.SLA)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError
	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: "storage.path", Message: "cannot be empty"})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{Field: "storage.busy_timeout", Message: "cannot be negative"})
	}
	return errs
}

func validateWorkflow(cfg *WorkflowConfig) []FieldError {
	var errs []FieldError
	if len(cfg.Priorities) == 0 {
		errs = append(errs, FieldError{Field: "workflow.priorities", Message: "cannot be empty"})
	}
	seen := make(map[string]bool, len(cfg.Priorities))
	for _, p := range cfg.Priorities {
		if p == "" {
			errs = append(errs, FieldError{Field: "workflow.priorities", Message: "contains an empty token"})
			continue
		}
		if seen[p] {
			errs = append(errs, FieldError{
				Field:   "workflow.priorities",
				Message: fmt.Sprintf("duplicate token %q", p),
			})
		}
		seen[p] = true
	}
	if cfg.Watch && cfg.RulesPath == "" {
		errs = append(errs, FieldError{
			Field:   "workflow.watch",
			Message: "requires workflow.rules_path to be set",
		})
	}
	return errs
}

func validateSLA(cfg *SLAConfig) []FieldError {
	var errs []FieldError
	if cfg.Schedule == "" {
		errs = append(errs, FieldError{Field: "sla.schedule", Message: "cannot be empty"})
		return errs
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "sla.schedule",
			Message: fmt.Sprintf("invalid cron schedule %q: %v", cfg.Schedule, err),
		})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error; got %q", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be json or text; got %q", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.listen_address",
			Message: "cannot be empty when metrics are enabled",
		})
	}

	return errs
}
