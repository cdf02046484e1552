package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"tasksync-hq/tasksync/pkg/activity"
	"tasksync-hq/tasksync/pkg/cli"
	"tasksync-hq/tasksync/pkg/config"
	"tasksync-hq/tasksync/pkg/notify"
	"tasksync-hq/tasksync/pkg/task"
	"tasksync-hq/tasksync/pkg/task/service"
	"tasksync-hq/tasksync/pkg/task/storage"
	"tasksync-hq/tasksync/pkg/telemetry/logging"
	"tasksync-hq/tasksync/pkg/telemetry/metrics"
	"tasksync-hq/tasksync/pkg/workflow/engine"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
	Long: `Create and mutate tasks directly against the database.

Every mutation goes through the same lifecycle service the engine
uses: workflow rules fire synchronously, activity entries are
recorded, and SLA deadlines are computed.`,
}

var taskCreateFlags struct {
	id          int64
	title       string
	description string
	priority    string
	projectID   int64
	slaHours    int
	creatorID   int64
	creator     string
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task",
	Long: `Create a task and dispatch TASK_CREATED to the workflow engine.

Examples:
  tasksync task create --id 42 --project 7 --title "Fix login timeout"

  # With an 8 hour SLA
  tasksync task create --id 43 --project 7 --title "Rotate API keys" \
    --priority HIGH --sla 8`,
	RunE: createTask,
}

var taskAssignFlags struct {
	userID   int64
	username string
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign <id>",
	Short: "Assign a task",
	Long: `Assign a task to a user and dispatch TASK_ASSIGNED.

Assignment starts a fresh SLA deadline episode on tasks with a
configured SLA.`,
	Args: cobra.ExactArgs(1),
	RunE: assignTask,
}

var taskStatusFlags struct {
	actorID int64
	actor   string
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Change a task's status",
	Args:  cobra.ExactArgs(2),
	RunE:  changeTaskStatus,
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task and its activity log",
	Args:  cobra.ExactArgs(1),
	RunE:  showTask,
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskAssignCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskShowCmd)

	taskCreateCmd.Flags().Int64Var(&taskCreateFlags.id, "id", 0, "task id (required)")
	taskCreateCmd.Flags().StringVar(&taskCreateFlags.title, "title", "", "task title (required)")
	taskCreateCmd.Flags().StringVar(&taskCreateFlags.description, "description", "", "task description")
	taskCreateCmd.Flags().StringVar(&taskCreateFlags.priority, "priority", "", "task priority")
	taskCreateCmd.Flags().Int64Var(&taskCreateFlags.projectID, "project", 0, "project id (required)")
	taskCreateCmd.Flags().IntVar(&taskCreateFlags.slaHours, "sla", 0, "SLA duration in hours (0 disables SLA)")
	taskCreateCmd.Flags().Int64Var(&taskCreateFlags.creatorID, "creator-id", 0, "creator user id")
	taskCreateCmd.Flags().StringVar(&taskCreateFlags.creator, "creator", "", "creator username")
	taskCreateCmd.MarkFlagRequired("id")
	taskCreateCmd.MarkFlagRequired("title")
	taskCreateCmd.MarkFlagRequired("project")

	taskAssignCmd.Flags().Int64Var(&taskAssignFlags.userID, "user-id", 0, "assignee user id (required)")
	taskAssignCmd.Flags().StringVar(&taskAssignFlags.username, "username", "", "assignee username (required)")
	taskAssignCmd.MarkFlagRequired("user-id")
	taskAssignCmd.MarkFlagRequired("username")

	taskStatusCmd.Flags().Int64Var(&taskStatusFlags.actorID, "actor-id", 0, "acting user id")
	taskStatusCmd.Flags().StringVar(&taskStatusFlags.actor, "actor", "", "acting username")
}

// taskStack is the full lifecycle wiring behind the task commands: the
// shared database handle, the activity recorder, and a workflow engine
// so rules fire on CLI-driven mutations exactly as they do in the
// running service.
type taskStack struct {
	store    *storage.SQLiteStore
	recorder activity.Recorder
	service  *service.Service
}

func openTaskStack(ctx context.Context) (*taskStack, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	taskStore, err := storage.NewSQLiteStore(storage.SQLiteStoreConfig{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open task store: %w", err)
	}

	notifyStore, err := notify.NewSQLiteStoreWithDB(taskStore.DB())
	if err != nil {
		taskStore.Close()
		return nil, fmt.Errorf("failed to open notification store: %w", err)
	}
	recorder, err := activity.NewSQLiteRecorderWithDB(taskStore.DB())
	if err != nil {
		taskStore.Close()
		return nil, fmt.Errorf("failed to open activity store: %w", err)
	}

	ruleSource, _, err := buildRuleSource(ctx, cfg, taskStore, logger)
	if err != nil {
		taskStore.Close()
		return nil, err
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	notifier := notify.NewService(notifyStore, nil, logger)
	executor := engine.NewExecutor(taskStore, notifier, recorder, configuredPriorities(cfg), collector, logger)
	eng := engine.New(ruleSource, engine.NewMatcher(logger), executor, collector, logger)

	return &taskStack{
		store:    taskStore,
		recorder: recorder,
		service:  service.New(taskStore, taskStore, recorder, eng, logger),
	}, nil
}

func (s *taskStack) Close() {
	s.store.Close()
}

func createTask(cmd *cobra.Command, args []string) error {
	stack, err := openTaskStack(cmd.Context())
	if err != nil {
		return err
	}
	defer stack.Close()

	t := &task.Task{
		ID:          taskCreateFlags.id,
		Title:       taskCreateFlags.title,
		Description: taskCreateFlags.description,
		Priority:    task.Priority(taskCreateFlags.priority),
		Project:     &task.Project{ID: taskCreateFlags.projectID},
	}
	if taskCreateFlags.slaHours > 0 {
		hours := taskCreateFlags.slaHours
		t.SLAHours = &hours
	}
	if taskCreateFlags.creatorID != 0 {
		t.CreatedBy = &task.User{ID: taskCreateFlags.creatorID, Username: taskCreateFlags.creator}
	}

	if err := stack.service.Create(cmd.Context(), t); err != nil {
		return cli.NewCommandError("task create", err)
	}

	fmt.Printf("✓ Task %d created\n", t.ID)
	if t.SLADeadline != nil {
		fmt.Printf("  SLA deadline: %s\n", t.SLADeadline.Format("2006-01-02 15:04"))
	}
	return nil
}

func assignTask(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return cli.NewCommandError("task assign", fmt.Errorf("invalid task id %q", args[0]))
	}

	stack, err := openTaskStack(cmd.Context())
	if err != nil {
		return err
	}
	defer stack.Close()

	assignee := &task.User{ID: taskAssignFlags.userID, Username: taskAssignFlags.username}
	if err := stack.store.SaveUser(cmd.Context(), assignee); err != nil {
		return cli.NewCommandError("task assign", err)
	}

	t, err := stack.service.Assign(cmd.Context(), id, assignee)
	if err != nil {
		return cli.NewCommandError("task assign", err)
	}

	fmt.Printf("✓ Task %d assigned to %s\n", t.ID, assignee.Username)
	if t.SLADeadline != nil {
		fmt.Printf("  SLA deadline: %s\n", t.SLADeadline.Format("2006-01-02 15:04"))
	}
	return nil
}

func changeTaskStatus(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return cli.NewCommandError("task status", fmt.Errorf("invalid task id %q", args[0]))
	}

	stack, err := openTaskStack(cmd.Context())
	if err != nil {
		return err
	}
	defer stack.Close()

	var actor *task.User
	if taskStatusFlags.actorID != 0 {
		actor = &task.User{ID: taskStatusFlags.actorID, Username: taskStatusFlags.actor}
	}

	t, err := stack.service.ChangeStatus(cmd.Context(), id, task.Status(args[1]), actor)
	if err != nil {
		return cli.NewCommandError("task status", err)
	}

	fmt.Printf("✓ Task %d is now %s\n", t.ID, t.Status)
	return nil
}

func showTask(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return cli.NewCommandError("task show", fmt.Errorf("invalid task id %q", args[0]))
	}

	stack, err := openTaskStack(cmd.Context())
	if err != nil {
		return err
	}
	defer stack.Close()

	t, err := stack.service.Get(cmd.Context(), id)
	if err != nil {
		return cli.NewCommandError("task show", err)
	}

	fmt.Printf("Task %d: %s\n", t.ID, t.Title)
	fmt.Printf("  Status:   %s\n", t.Status)
	fmt.Printf("  Priority: %s\n", t.Priority)
	if t.Assignee != nil {
		fmt.Printf("  Assignee: %s\n", t.Assignee.Username)
	}
	if t.SLADeadline != nil {
		fmt.Printf("  SLA deadline: %s (breached=%t escalated=%t)\n",
			t.SLADeadline.Format("2006-01-02 15:04"), t.SLABreached, t.Escalated)
	}

	entries, err := stack.recorder.ListByTask(cmd.Context(), id)
	if err != nil {
		return cli.NewCommandError("task show", err)
	}
	if len(entries) > 0 {
		fmt.Println("\nActivity:")
		for _, e := range entries {
			actor := e.Actor
			if actor == "" {
				actor = "system"
			}
			fmt.Printf("  %s  %-12s %s\n", e.CreatedAt.Format("2006-01-02 15:04"), actor, e.Action)
		}
	}
	return nil
}
