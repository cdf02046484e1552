package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns
// any errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow
// the naming convention TASKSYNC_SECTION_FIELD (e.g.
// TASKSYNC_STORAGE_PATH) and always take precedence over file-based
// configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after env overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies TASKSYNC_* environment variables to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TASKSYNC_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("TASKSYNC_STORAGE_BUSY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Storage.BusyTimeout = d
		}
	}
	if v := os.Getenv("TASKSYNC_WORKFLOW_RULES_PATH"); v != "" {
		cfg.Workflow.RulesPath = v
	}
	if v := os.Getenv("TASKSYNC_WORKFLOW_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Workflow.Watch = b
		}
	}
	if v := os.Getenv("TASKSYNC_WORKFLOW_PRIORITIES"); v != "" {
		var priorities []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				priorities = append(priorities, p)
			}
		}
		if len(priorities) > 0 {
			cfg.Workflow.Priorities = priorities
		}
	}
	if v := os.Getenv("TASKSYNC_SLA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SLA.Enabled = b
		}
	}
	if v := os.Getenv("TASKSYNC_SLA_SCHEDULE"); v != "" {
		cfg.SLA.Schedule = v
	}
	if v := os.Getenv("TASKSYNC_LOG_LEVEL"); v != "" {
		cfg.Telemetry.Logging.Level = v
	}
	if v := os.Getenv("TASKSYNC_LOG_FORMAT"); v != "" {
		cfg.Telemetry.Logging.Format = v
	}
	if v := os.Getenv("TASKSYNC_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("TASKSYNC_METRICS_LISTEN_ADDRESS"); v != "" {
		cfg.Telemetry.Metrics.ListenAddress = v
	}
}
