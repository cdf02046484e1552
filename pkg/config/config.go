package config

import "time"

// Config is the root configuration structure for TaskSync. It contains
// all configuration sections for storage, the workflow engine, the SLA
// monitor, and telemetry.
type Config struct {
	// Storage contains the SQLite database configuration shared by the
	// task, rule, notification, and activity stores.
	Storage StorageConfig `yaml:"storage"`

	// Workflow contains configuration for the rule engine: where rules
	// come from and the recognized priority enumeration.
	Workflow WorkflowConfig `yaml:"workflow"`

	// SLA contains configuration for the periodic deadline monitor.
	SLA SLAConfig `yaml:"sla"`

	// Telemetry contains observability configuration: logging and
	// metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig contains the SQLite database configuration.
type StorageConfig struct {
	// Path is the database file path.
	// Default: "data/tasksync.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait for database locks before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// WorkflowConfig contains configuration for the workflow rule engine.
type WorkflowConfig struct {
	// RulesPath optionally points at a YAML rule bundle file or a
	// directory of bundles. When set, rules are served from these files
	// instead of the database rule store.
	RulesPath string `yaml:"rules_path"`

	// Watch enables hot reload of the rule files when they change.
	// Only meaningful when RulesPath is set.
	// Default: false
	Watch bool `yaml:"watch"`

	// Priorities is the recognized priority enumeration, in ascending
	// order of urgency. The setPriority action rejects tokens outside
	// this set.
	// Default: ["LOW", "MEDIUM", "HIGH", "CRITICAL"]
	Priorities []string `yaml:"priorities"`
}

// SLAConfig contains configuration for the SLA deadline monitor.
type SLAConfig struct {
	// Enabled controls whether the monitor runs.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Schedule is the monitor's tick schedule in cron syntax. The
	// "@every" form is also accepted (e.g. "@every 5m").
	// Default: "@every 5m"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "tasksync"
	Namespace string `yaml:"namespace"`

	// ListenAddress is the address for the /metrics HTTP listener.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`
}
