package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tasksync-hq/tasksync/pkg/activity"
	"tasksync-hq/tasksync/pkg/notify"
	"tasksync-hq/tasksync/pkg/task"
	"tasksync-hq/tasksync/pkg/telemetry/metrics"
	"tasksync-hq/tasksync/pkg/workflow"
)

// TaskWriter is the slice of task persistence the executor mutates
// through. MarkEscalated must be an atomic conditional update (see
// pkg/task/storage).
type TaskWriter interface {
	SetPriority(ctx context.Context, id int64, p task.Priority) error
	MarkEscalated(ctx context.Context, id int64, now time.Time) (bool, error)
	ResetSLA(ctx context.Context, id int64, deadline time.Time) error
}

// Notifier creates durable notifications with best-effort push.
type Notifier interface {
	Create(ctx context.Context, recipient *task.User, typ notify.Type, message string, projectID, taskID int64) error
}

// Executor interprets a rule's action descriptor against an event
// context and applies effects. Execution is best-effort per sub-action:
// a failure in one sub-action is logged and does not prevent the others
// from running.
type Executor struct {
	tasks      TaskWriter
	notifier   Notifier
	recorder   activity.Recorder
	priorities map[task.Priority]bool
	metrics    *metrics.Collector
	logger     *slog.Logger

	// now is the clock; replaceable in tests.
	now func() time.Time
}

// NewExecutor creates an action executor. The priorities slice is the
// recognized enumeration for the setPriority action; recorder and
// collector may be nil.
func NewExecutor(tasks TaskWriter, notifier Notifier, recorder activity.Recorder, priorities []task.Priority, collector *metrics.Collector, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if len(priorities) == 0 {
		priorities = task.DefaultPriorities()
	}
	set := make(map[task.Priority]bool, len(priorities))
	for _, p := range priorities {
		set[p] = true
	}
	return &Executor{
		tasks:      tasks,
		notifier:   notifier,
		recorder:   recorder,
		priorities: set,
		metrics:    collector,
		logger:     logger.With("component", "workflow.executor"),
		now:        time.Now,
	}
}

// Execute parses and applies an action descriptor. A malformed
// descriptor makes the whole call a no-op and is returned as an error
// for the caller to log with rule identity; every other failure is
// absorbed at sub-action granularity.
func (e *Executor) Execute(ctx context.Context, actionsJSON string, evCtx *workflow.Context) error {
	actions, err := workflow.ParseActions(actionsJSON)
	if err != nil {
		return err
	}

	if len(actions.Notify) > 0 {
		e.notifyTargets(ctx, actions.Notify, evCtx)
	}
	if actions.SetPriority != "" {
		e.setPriority(ctx, actions.SetPriority, evCtx)
	}
	if actions.ResetSLA {
		e.resetSLA(ctx, evCtx)
	}
	if actions.Escalate {
		e.escalate(ctx, evCtx)
	}

	return nil
}

// notifyTargets resolves each role token and creates a workflow
// notification for every resolvable recipient. Unrecognized tokens and
// unresolvable roles are skipped silently.
func (e *Executor) notifyTargets(ctx context.Context, targets []string, evCtx *workflow.Context) {
	if evCtx.Task == nil {
		e.recordAction("notify", metrics.ActionOutcomeSkipped)
		return
	}

	t := evCtx.Task
	message := fmt.Sprintf("Workflow triggered on task: %s", t.Title)

	for _, target := range targets {
		recipient := resolveRecipient(target, evCtx)
		if recipient == nil {
			e.recordAction("notify", metrics.ActionOutcomeSkipped)
			continue
		}

		if err := e.notifier.Create(ctx, recipient, notify.TypeWorkflowTriggered, message, projectID(evCtx), t.ID); err != nil {
			e.logger.Error("workflow notification failed",
				"task_id", t.ID,
				"role", target,
				"error", err,
			)
			e.recordAction("notify", metrics.ActionOutcomeFailed)
			continue
		}
		e.recordNotification(notify.TypeWorkflowTriggered)
		e.recordAction("notify", metrics.ActionOutcomeSuccess)
	}
}

// resolveRecipient maps a role token to a concrete user from the
// context. Unknown tokens resolve to no recipient, never an error.
func resolveRecipient(role string, evCtx *workflow.Context) *task.User {
	switch role {
	case workflow.RoleAssignee:
		if evCtx.Task != nil {
			return evCtx.Task.Assignee
		}
	case workflow.RoleCreator:
		if evCtx.Task != nil {
			return evCtx.Task.CreatedBy
		}
	case workflow.RoleManager:
		if evCtx.Project != nil {
			return evCtx.Project.Manager
		}
	}
	return nil
}

// setPriority validates the token against the configured enumeration
// and mutates the task's priority. An out-of-set token fails this
// sub-action only.
func (e *Executor) setPriority(ctx context.Context, token string, evCtx *workflow.Context) {
	if evCtx.Task == nil {
		e.recordAction("setPriority", metrics.ActionOutcomeSkipped)
		return
	}

	p := task.Priority(token)
	if !e.priorities[p] {
		e.logger.Error("setPriority rejected: unknown priority token",
			"task_id", evCtx.Task.ID,
			"priority", token,
		)
		e.recordAction("setPriority", metrics.ActionOutcomeFailed)
		return
	}

	if err := e.tasks.SetPriority(ctx, evCtx.Task.ID, p); err != nil {
		e.logger.Error("setPriority failed",
			"task_id", evCtx.Task.ID,
			"priority", token,
			"error", err,
		)
		e.recordAction("setPriority", metrics.ActionOutcomeFailed)
		return
	}

	e.recordActivity(ctx, evCtx, fmt.Sprintf("Workflow set priority to %s", token))
	e.logger.Info("workflow set task priority",
		"task_id", evCtx.Task.ID,
		"priority", token,
	)
	e.recordAction("setPriority", metrics.ActionOutcomeSuccess)
}

// resetSLA recomputes the deadline from now plus the task's configured
// SLA hours and clears the breach and escalation flags, starting a
// fresh deadline episode. Tasks without a configured SLA are skipped.
func (e *Executor) resetSLA(ctx context.Context, evCtx *workflow.Context) {
	t := evCtx.Task
	if t == nil || !t.HasSLA() {
		e.recordAction("resetSla", metrics.ActionOutcomeSkipped)
		return
	}

	deadline := t.ComputeDeadline(e.now())
	if err := e.tasks.ResetSLA(ctx, t.ID, deadline); err != nil {
		e.logger.Error("resetSla failed",
			"task_id", t.ID,
			"error", err,
		)
		e.recordAction("resetSla", metrics.ActionOutcomeFailed)
		return
	}

	e.recordActivity(ctx, evCtx, "Workflow reset SLA deadline")
	e.logger.Info("workflow reset task SLA",
		"task_id", t.ID,
		"deadline", deadline,
	)
	e.recordAction("resetSla", metrics.ActionOutcomeSuccess)
}

// escalate marks the task escalated and notifies the project manager,
// exactly once per breach episode. The conditional update in the store
// makes a second call a no-op even under concurrent dispatch.
func (e *Executor) escalate(ctx context.Context, evCtx *workflow.Context) {
	t := evCtx.Task
	if t == nil {
		e.recordAction("escalate", metrics.ActionOutcomeSkipped)
		return
	}

	transitioned, err := e.tasks.MarkEscalated(ctx, t.ID, e.now())
	if err != nil {
		e.logger.Error("escalate failed",
			"task_id", t.ID,
			"error", err,
		)
		e.recordAction("escalate", metrics.ActionOutcomeFailed)
		return
	}
	if !transitioned {
		// Already escalated this episode
		e.recordAction("escalate", metrics.ActionOutcomeSkipped)
		return
	}

	manager := resolveRecipient(workflow.RoleManager, evCtx)
	if manager != nil {
		message := fmt.Sprintf("Workflow escalation for task: %s", t.Title)
		if err := e.notifier.Create(ctx, manager, notify.TypeSLAEscalated, message, projectID(evCtx), t.ID); err != nil {
			e.logger.Error("escalation notification failed",
				"task_id", t.ID,
				"error", err,
			)
		} else {
			e.recordNotification(notify.TypeSLAEscalated)
		}
	}

	e.recordActivity(ctx, evCtx, "Workflow escalated task to project manager")
	e.logger.Warn("workflow escalated task",
		"task_id", t.ID,
	)
	if e.metrics != nil {
		e.metrics.RecordEscalation()
	}
	e.recordAction("escalate", metrics.ActionOutcomeSuccess)
}

// recordActivity appends an audit entry attributed to the project
// manager, the responsible party for automated mutations. Audit
// failures are absorbed.
func (e *Executor) recordActivity(ctx context.Context, evCtx *workflow.Context, action string) {
	if e.recorder == nil || evCtx.Task == nil {
		return
	}
	actor := resolveRecipient(workflow.RoleManager, evCtx)
	if err := e.recorder.Record(ctx, evCtx.Task, actor, action); err != nil {
		e.logger.Error("activity record failed",
			"task_id", evCtx.Task.ID,
			"error", err,
		)
	}
}

func (e *Executor) recordAction(action, outcome string) {
	if e.metrics != nil {
		e.metrics.RecordAction(action, outcome)
	}
}

func (e *Executor) recordNotification(typ notify.Type) {
	if e.metrics != nil {
		e.metrics.RecordNotification(string(typ))
	}
}

func projectID(evCtx *workflow.Context) int64 {
	if evCtx.Project != nil {
		return evCtx.Project.ID
	}
	return 0
}
