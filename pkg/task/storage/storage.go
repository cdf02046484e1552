package storage

import (
	"context"
	"errors"
	"time"

	"tasksync-hq/tasksync/pkg/task"
)

// ErrNotFound is returned when a task, project, or user does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence contract the workflow engine and SLA monitor
// depend on. Implementations must make MarkBreached and MarkEscalated
// atomic conditional updates: the flag is read and flipped in a single
// storage operation conditioned on its prior value, so that two
// concurrent writers can never both observe the transition. This is how
// the "at most one breach transition (and at most one escalation) per
// deadline episode" invariant is enforced.
type Store interface {
	// Get returns the task with the given id, including its project,
	// manager, assignee, and creator references.
	Get(ctx context.Context, id int64) (*task.Task, error)

	// Save upserts the task by identity.
	Save(ctx context.Context, t *task.Task) error

	// FindOverdue returns tasks with a configured SLA whose deadline is
	// before now, that are not yet breached and not in a terminal
	// status. Tasks already flagged breached are excluded, which bounds
	// re-processing across monitor ticks.
	FindOverdue(ctx context.Context, now time.Time) ([]*task.Task, error)

	// SetPriority updates the task's priority in place.
	SetPriority(ctx context.Context, id int64, p task.Priority) error

	// MarkBreached flips the breached flag if and only if it is
	// currently clear. It reports whether this call performed the
	// transition.
	MarkBreached(ctx context.Context, id int64, now time.Time) (bool, error)

	// MarkEscalated flips the escalated flag if and only if it is
	// currently clear. It reports whether this call performed the
	// transition.
	MarkEscalated(ctx context.Context, id int64, now time.Time) (bool, error)

	// ResetSLA sets a new deadline and clears both the breached and
	// escalated flags, starting a fresh deadline episode.
	ResetSLA(ctx context.Context, id int64, deadline time.Time) error
}
