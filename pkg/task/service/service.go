package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tasksync-hq/tasksync/pkg/activity"
	"tasksync-hq/tasksync/pkg/task"
	"tasksync-hq/tasksync/pkg/task/storage"
	"tasksync-hq/tasksync/pkg/workflow"
)

// Dispatcher receives the domain events emitted by lifecycle
// operations. Dispatch is synchronous and never fails the operation.
type Dispatcher interface {
	HandleEvent(ctx context.Context, eventType workflow.EventType, evCtx *workflow.Context)
}

// ProjectSaver persists project mutations. Optional; backends without
// durable project storage leave it nil.
type ProjectSaver interface {
	SaveProject(ctx context.Context, p *task.Project) error
}

// Service implements the task lifecycle: create, assign, status
// transitions, field updates, and project archival. Every successful
// mutation is persisted first, then audited, then dispatched to the
// workflow engine in the same call.
type Service struct {
	tasks    storage.Store
	projects ProjectSaver
	recorder activity.Recorder
	engine   Dispatcher
	logger   *slog.Logger

	// now is the clock; replaceable in tests.
	now func() time.Time
}

// New creates a lifecycle service. projects and recorder may be nil.
func New(tasks storage.Store, projects ProjectSaver, recorder activity.Recorder, engine Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tasks:    tasks,
		projects: projects,
		recorder: recorder,
		engine:   engine,
		logger:   logger.With("component", "task.service"),
		now:      time.Now,
	}
}

// Create persists a new task and dispatches TASK_CREATED. Status
// defaults to TODO and priority to MEDIUM; a task with configured SLA
// hours gets its deadline computed from the creation time.
func (s *Service) Create(ctx context.Context, t *task.Task) error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if t.Title == "" {
		return fmt.Errorf("task title cannot be empty")
	}
	if t.Status == "" {
		t.Status = task.StatusTodo
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}

	now := s.now()
	if t.HasSLA() {
		deadline := t.ComputeDeadline(now)
		t.SLADeadline = &deadline
	}
	t.CreatedAt = now

	if err := s.tasks.Save(ctx, t); err != nil {
		return fmt.Errorf("save task: %w", err)
	}

	s.record(ctx, t, t.CreatedBy, "Task created")
	s.logger.Info("task created",
		"task_id", t.ID,
		"title", t.Title,
	)
	s.engine.HandleEvent(ctx, workflow.EventTaskCreated, workflow.TaskCreated(t))

	return nil
}

// Assign sets the task's assignee and dispatches TASK_ASSIGNED. A task
// with configured SLA hours gets a fresh deadline from the assignment
// time; the previous breach episode, if any, ends.
func (s *Service) Assign(ctx context.Context, id int64, assignee *task.User) (*task.Task, error) {
	if assignee == nil {
		return nil, fmt.Errorf("assignee cannot be nil")
	}

	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	t.Assignee = assignee
	if t.HasSLA() {
		deadline := t.ComputeDeadline(s.now())
		t.SLADeadline = &deadline
		t.SLABreached = false
		t.Escalated = false
	}

	if err := s.tasks.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	s.record(ctx, t, assignee, fmt.Sprintf("Task assigned to %s", assignee.Username))
	s.logger.Info("task assigned",
		"task_id", t.ID,
		"assignee", assignee.Username,
	)
	s.engine.HandleEvent(ctx, workflow.EventTaskAssigned, workflow.TaskAssigned(t))

	return t, nil
}

// ChangeStatus transitions the task to the given status and dispatches
// TASK_STATUS_CHANGED carrying the previous status. Setting the same
// status again is a no-op without an event.
func (s *Service) ChangeStatus(ctx context.Context, id int64, status task.Status, actor *task.User) (*task.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}

	t, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := t.Status
	if previous == status {
		return t, nil
	}

	t.Status = status
	if err := s.tasks.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	s.record(ctx, t, actor, fmt.Sprintf("Status changed from %s to %s", previous, status))
	s.logger.Info("task status changed",
		"task_id", t.ID,
		"from", previous,
		"to", status,
	)
	s.engine.HandleEvent(ctx, workflow.EventTaskStatusChanged, workflow.TaskStatusChanged(t, previous))

	return t, nil
}

// Update persists field edits on an existing task and dispatches
// TASK_UPDATED. Status transitions go through ChangeStatus instead.
func (s *Service) Update(ctx context.Context, t *task.Task, actor *task.User) error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if _, err := s.tasks.Get(ctx, t.ID); err != nil {
		return err
	}

	if err := s.tasks.Save(ctx, t); err != nil {
		return fmt.Errorf("save task: %w", err)
	}

	s.record(ctx, t, actor, "Task updated")
	s.engine.HandleEvent(ctx, workflow.EventTaskUpdated, workflow.TaskUpdated(t))

	return nil
}

// Get returns the task by id.
func (s *Service) Get(ctx context.Context, id int64) (*task.Task, error) {
	return s.tasks.Get(ctx, id)
}

// ArchiveProject marks the project archived and dispatches
// PROJECT_ARCHIVED. Archiving an already archived project is a no-op
// without an event.
func (s *Service) ArchiveProject(ctx context.Context, p *task.Project) error {
	if p == nil {
		return fmt.Errorf("project cannot be nil")
	}
	if p.Archived {
		return nil
	}

	p.Archived = true
	if s.projects != nil {
		if err := s.projects.SaveProject(ctx, p); err != nil {
			p.Archived = false
			return fmt.Errorf("save project: %w", err)
		}
	}

	s.logger.Info("project archived",
		"project_id", p.ID,
		"project", p.Name,
	)
	s.engine.HandleEvent(ctx, workflow.EventProjectArchived, workflow.ProjectArchived(p))

	return nil
}

// record appends an audit entry; audit failures never fail the
// operation.
func (s *Service) record(ctx context.Context, t *task.Task, actor *task.User, action string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, t, actor, action); err != nil {
		s.logger.Error("activity record failed",
			"task_id", t.ID,
			"error", err,
		)
	}
}
