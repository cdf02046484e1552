// Package config provides YAML-based configuration for TaskSync with
// defaults, validation, and TASKSYNC_* environment variable overrides.
//
// The loading sequence is:
//
//  1. Parse YAML from file
//  2. Apply default values (ApplyDefaults)
//  3. Optionally apply environment overrides
//  4. Validate the final configuration (Validate)
//
// Validation collects all field errors rather than failing on the
// first, so an operator sees every problem in one pass.
package config
