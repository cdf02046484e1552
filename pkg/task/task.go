package task

import "time"

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Valid reports whether s is a recognized task status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Terminal reports whether s is a closing status. Tasks in a terminal
// status are excluded from SLA monitoring.
func (s Status) Terminal() bool {
	return s == StatusDone
}

// Priority represents the urgency level of a task. The recognized member
// set is configured at startup (see config.WorkflowConfig.Priorities);
// these constants are the default enumeration.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// DefaultPriorities returns the default priority enumeration in ascending
// order of urgency.
func DefaultPriorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// User identifies an actor in the system. Identity management is external;
// the workflow core only reads these fields.
type User struct {
	ID       int64
	Username string
	Email    string
}

// Project groups tasks under a single manager. The manager is the
// escalation target for SLA breaches on the project's tasks.
type Project struct {
	ID       int64
	Name     string
	Manager  *User
	Archived bool
}

// Task is the central work item. The workflow engine and SLA monitor
// read and write the status, priority, and SLA fields; everything else
// is owned by external collaborators.
type Task struct {
	ID          int64
	Title       string
	Description string

	Status   Status
	Priority Priority

	DueDate *time.Time

	// SLAHours is the configured SLA duration. A nil value disables all
	// SLA behavior for this task.
	SLAHours *int

	// SLADeadline is derived from SLAHours; it is recomputed on
	// assignment and on a resetSla action, never set independently.
	SLADeadline *time.Time

	// SLABreached and Escalated transition false to true at most once
	// per deadline episode. A resetSla action clears both for a fresh
	// episode.
	SLABreached bool
	Escalated   bool

	Project   *Project
	Assignee  *User
	CreatedBy *User

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSLA reports whether the task has a configured SLA duration.
func (t *Task) HasSLA() bool {
	return t.SLAHours != nil
}

// ComputeDeadline returns the SLA deadline counted from now. It returns
// the zero time if the task has no configured SLA.
func (t *Task) ComputeDeadline(now time.Time) time.Time {
	if t.SLAHours == nil {
		return time.Time{}
	}
	return now.Add(time.Duration(*t.SLAHours) * time.Hour)
}
