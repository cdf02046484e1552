package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"tasksync-hq/tasksync/pkg/workflow/store"
)

var lintFlags struct {
	file   string
	dir    string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate rule bundle files",
	Long: `Validate YAML workflow rule bundles without starting the engine.

The lint command parses each bundle and checks:
  - YAML syntax
  - Event type membership
  - Condition payloads (JSON object of scalar equality checks)
  - Action descriptors (recognized action keys and value types)

Examples:
  # Lint a single bundle
  tasksync lint --file rules.yaml

  # Lint a directory of bundles
  tasksync lint --dir rules/

  # JSON output for CI
  tasksync lint --file rules.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "rule bundle to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of rule bundles")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// lintResult is the validation outcome for one bundle file.
type lintResult struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Rules int    `json:"rules"`
	Error string `json:"error,omitempty"`
}

func lintRules(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}
	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list rule files: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no rule files found")
	}

	results := make([]lintResult, 0, len(files))
	for _, file := range files {
		results = append(results, lintFile(file))
	}

	if lintFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Printf("✓ %s (%d rules)\n", r.File, r.Rules)
			} else {
				fmt.Printf("✗ %s: %s\n", r.File, r.Error)
			}
		}
	}

	for _, r := range results {
		if !r.Valid {
			return fmt.Errorf("%d of %d files invalid", countInvalid(results), len(results))
		}
	}
	return nil
}

func lintFile(path string) lintResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return lintResult{File: path, Error: err.Error()}
	}

	rules, err := store.ParseBundle(data)
	if err != nil {
		return lintResult{File: path, Error: err.Error()}
	}

	return lintResult{File: path, Valid: true, Rules: len(rules)}
}

func countInvalid(results []lintResult) int {
	n := 0
	for _, r := range results {
		if !r.Valid {
			n++
		}
	}
	return n
}
