package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tasksync",
	Short: "TaskSync - workflow automation engine for work tracking",
	Long: `TaskSync is a workflow automation engine for work tracking.

It evaluates operator-defined rules against task lifecycle events
(created, updated, assigned, status changed, SLA breached, project
archived) and applies the configured actions: notifications, priority
changes, SLA resets, and escalations. A periodic monitor detects tasks
whose SLA deadline has passed and feeds the breach back through the
same rule engine.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
