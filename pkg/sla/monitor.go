package sla

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tasksync-hq/tasksync/pkg/activity"
	"tasksync-hq/tasksync/pkg/config"
	"tasksync-hq/tasksync/pkg/task"
	"tasksync-hq/tasksync/pkg/telemetry/metrics"
	"tasksync-hq/tasksync/pkg/workflow"
)

// TaskScanner is the slice of task persistence the monitor reads and
// transitions through. MarkBreached must be an atomic conditional
// update so that overlapping sweeps record each breach exactly once.
type TaskScanner interface {
	FindOverdue(ctx context.Context, now time.Time) ([]*task.Task, error)
	MarkBreached(ctx context.Context, id int64, now time.Time) (bool, error)
}

// Dispatcher receives the synthesized breach events.
type Dispatcher interface {
	HandleEvent(ctx context.Context, eventType workflow.EventType, evCtx *workflow.Context)
}

// Monitor sweeps for tasks whose SLA deadline has passed and records
// the breach. Each sweep runs on a cron schedule; per-task failures
// within a sweep are isolated so one bad row never stalls the rest of
// the scan.
type Monitor struct {
	cfg      *config.SLAConfig
	tasks    TaskScanner
	recorder activity.Recorder
	engine   Dispatcher
	metrics  *metrics.Collector
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool

	// now is the clock; replaceable in tests.
	now func() time.Time
}

// NewMonitor creates a deadline monitor. The recorder and collector may
// be nil.
func NewMonitor(cfg *config.SLAConfig, tasks TaskScanner, recorder activity.Recorder, engine Dispatcher, collector *metrics.Collector, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:      cfg,
		tasks:    tasks,
		recorder: recorder,
		engine:   engine,
		metrics:  collector,
		cron:     cron.New(),
		logger:   logger.With("component", "sla.monitor"),
		now:      time.Now,
	}
}

// Start schedules the periodic sweep. If the monitor is disabled in
// config this is a no-op. The monitor stops when ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Enabled {
		m.logger.Info("sla monitor disabled, skipping")
		return nil
	}

	schedule := m.cfg.Schedule
	if schedule == "" {
		schedule = config.DefaultSLASchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid sla schedule %q: %w", schedule, err)
	}

	if _, err := m.cron.AddFunc(schedule, func() {
		m.RunTick(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sla sweep: %w", err)
	}

	m.cron.Start()
	m.running = true

	m.logger.Info("sla monitor started",
		"schedule", schedule,
	)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running sweep to complete.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cron != nil && m.running {
		ctx := m.cron.Stop()
		<-ctx.Done()
		m.running = false
		m.logger.Info("sla monitor stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.running
}

// NextRun returns the next scheduled sweep time, or nil when the
// monitor is not scheduled.
func (m *Monitor) NextRun() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// RunTick executes one sweep: find overdue tasks, transition each to
// breached, record the audit entry, and hand the breach event to the
// workflow engine. A task that was breached concurrently by another
// sweep is skipped without side effects.
func (m *Monitor) RunTick(ctx context.Context) {
	start := m.now()

	overdue, err := m.tasks.FindOverdue(ctx, start)
	if err != nil {
		m.logger.Error("overdue scan failed",
			"error", err,
		)
		m.recordTick(time.Since(start), 1)
		return
	}
	if len(overdue) == 0 {
		m.logger.Debug("sla sweep completed, no overdue tasks")
		m.recordTick(time.Since(start), 0)
		return
	}

	entityErrors := 0
	breached := 0
	for _, t := range overdue {
		ok, err := m.breach(ctx, t)
		if err != nil {
			m.logger.Error("breach handling failed",
				"task_id", t.ID,
				"error", err,
			)
			entityErrors++
			continue
		}
		if ok {
			breached++
		}
	}

	m.logger.Info("sla sweep completed",
		"overdue", len(overdue),
		"breached", breached,
		"errors", entityErrors,
	)
	m.recordTick(time.Since(start), entityErrors)
}

// breach performs the transition for one overdue task and reports
// whether this sweep owned it.
func (m *Monitor) breach(ctx context.Context, t *task.Task) (bool, error) {
	now := m.now()

	transitioned, err := m.tasks.MarkBreached(ctx, t.ID, now)
	if err != nil {
		return false, fmt.Errorf("mark breached: %w", err)
	}
	if !transitioned {
		// Lost the race to a concurrent sweep
		return false, nil
	}

	t.SLABreached = true
	t.UpdatedAt = now

	m.logger.Warn("task SLA breached",
		"task_id", t.ID,
		"title", t.Title,
		"deadline", t.SLADeadline,
	)
	if m.metrics != nil {
		m.metrics.RecordBreach()
	}

	if m.recorder != nil {
		actor := projectManager(t)
		if err := m.recorder.Record(ctx, t, actor, "SLA breached for task"); err != nil {
			m.logger.Error("activity record failed",
				"task_id", t.ID,
				"error", err,
			)
		}
	}

	m.engine.HandleEvent(ctx, workflow.EventTaskSLABreached, workflow.TaskSLABreached(t))

	return true, nil
}

func (m *Monitor) recordTick(d time.Duration, entityErrors int) {
	if m.metrics != nil {
		m.metrics.RecordTick(d, entityErrors)
	}
}

func projectManager(t *task.Task) *task.User {
	if t.Project != nil {
		return t.Project.Manager
	}
	return nil
}
