package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"tasksync-hq/tasksync/pkg/activity"
	"tasksync-hq/tasksync/pkg/cli"
	"tasksync-hq/tasksync/pkg/config"
	"tasksync-hq/tasksync/pkg/notify"
	"tasksync-hq/tasksync/pkg/sla"
	"tasksync-hq/tasksync/pkg/task"
	"tasksync-hq/tasksync/pkg/task/storage"
	"tasksync-hq/tasksync/pkg/telemetry/logging"
	"tasksync-hq/tasksync/pkg/telemetry/metrics"
	"tasksync-hq/tasksync/pkg/workflow/engine"
	"tasksync-hq/tasksync/pkg/workflow/store"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the TaskSync engine",
	Long: `Start the TaskSync engine with the specified configuration.

The engine opens the task database, loads workflow rules from the
database or from the configured YAML rule files, starts the SLA
deadline monitor, and exposes Prometheus metrics.

Examples:
  # Start with default config
  tasksync run

  # Start with custom config
  tasksync run --config /etc/tasksync/config.yaml

  # Validate config without starting
  tasksync run --dry-run`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("TaskSync v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Task store owns the database handle; the other stores share it.
	taskStore, err := storage.NewSQLiteStore(storage.SQLiteStoreConfig{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open task store: %w", err)
	}
	defer taskStore.Close()

	notifyStore, err := notify.NewSQLiteStoreWithDB(taskStore.DB())
	if err != nil {
		return fmt.Errorf("failed to open notification store: %w", err)
	}
	recorder, err := activity.NewSQLiteRecorderWithDB(taskStore.DB())
	if err != nil {
		return fmt.Errorf("failed to open activity store: %w", err)
	}
	fmt.Println("✓ Database initialized")

	ruleSource, ruleCount, err := buildRuleSource(ctx, cfg, taskStore, logger)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Workflow rules loaded (%d rules)\n", ruleCount)

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	notifier := notify.NewService(notifyStore, nil, logger)
	executor := engine.NewExecutor(taskStore, notifier, recorder, configuredPriorities(cfg), collector, logger)
	eng := engine.New(ruleSource, engine.NewMatcher(logger), executor, collector, logger)

	monitor := sla.NewMonitor(&cfg.SLA, taskStore, recorder, eng, collector, logger)
	if err := monitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sla monitor: %w", err)
	}
	defer monitor.Stop()
	if next := monitor.NextRun(); next != nil {
		fmt.Printf("✓ SLA monitor started (next sweep %s)\n", next.Format(time.RFC3339))
	}

	errChan := make(chan error, 1)
	var metricsSrv *http.Server
	if cfg.Telemetry.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.Telemetry.Metrics.ListenAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Telemetry.Metrics.ListenAddress)
	}

	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		if metricsSrv != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}

		fmt.Println("✓ Engine stopped")
		return nil
	}
}

// buildRuleSource returns the rule source configured for this run:
// YAML files when workflow.rules_path is set, the database rule store
// otherwise.
func buildRuleSource(ctx context.Context, cfg *config.Config, taskStore *storage.SQLiteStore, logger *slog.Logger) (store.Source, int, error) {
	if cfg.Workflow.RulesPath != "" {
		fileSource, err := store.NewFileSource(cfg.Workflow.RulesPath, logger)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load rule files: %w", err)
		}
		if cfg.Workflow.Watch {
			go func() {
				if err := fileSource.Watch(ctx, time.Second); err != nil {
					slog.Error("rule file watcher exited", "error", err)
				}
			}()
		}
		rules, err := fileSource.List(ctx)
		if err != nil {
			return nil, 0, err
		}
		return fileSource, len(rules), nil
	}

	ruleStore, err := store.NewSQLiteStoreWithDB(taskStore.DB())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open rule store: %w", err)
	}
	rules, err := ruleStore.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	return ruleStore, len(rules), nil
}

func configuredPriorities(cfg *config.Config) []task.Priority {
	priorities := make([]task.Priority, 0, len(cfg.Workflow.Priorities))
	for _, p := range cfg.Workflow.Priorities {
		priorities = append(priorities, task.Priority(p))
	}
	return priorities
}
