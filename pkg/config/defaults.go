package config

import "time"

// Default values for configuration fields.
const (
	// Storage defaults
	DefaultStoragePath        = "data/tasksync.db"
	DefaultStorageBusyTimeout = 5 * time.Second

	// SLA monitor defaults
	DefaultSLAEnabled  = true
	DefaultSLASchedule = "@every 5m"

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Metrics defaults
	DefaultMetricsEnabled       = true
	DefaultMetricsNamespace     = "tasksync"
	DefaultMetricsListenAddress = "127.0.0.1:9090"
)

// DefaultPriorities is the default priority enumeration in ascending
// order of urgency.
var DefaultPriorities = []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}

// ApplyDefaults fills in default values for any unset configuration
// fields. It never overrides explicitly configured values.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultStorageBusyTimeout
	}

	if len(cfg.Workflow.Priorities) == 0 {
		cfg.Workflow.Priorities = append([]string(nil), DefaultPriorities...)
	}

	if cfg.SLA.Schedule == "" {
		cfg.SLA.Schedule = DefaultSLASchedule
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}

	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
}

// NewDefault returns a configuration populated entirely with defaults.
// The SLA monitor and metrics are enabled.
func NewDefault() *Config {
	cfg := &Config{
		SLA:       SLAConfig{Enabled: DefaultSLAEnabled},
		Telemetry: TelemetryConfig{Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled}},
	}
	ApplyDefaults(cfg)
	return cfg
}
