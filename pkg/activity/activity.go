package activity

import (
	"context"
	"time"

	"tasksync-hq/tasksync/pkg/task"
)

// Entry is one append-only audit record: who did what to which task.
type Entry struct {
	ID        string
	TaskID    int64
	ActorID   int64
	Actor     string
	Action    string
	CreatedAt time.Time
}

// Recorder appends audit entries for workflow- and monitor-triggered
// mutations. Implementations must be safe for concurrent use.
type Recorder interface {
	// Record appends an entry attributing the given action to the actor.
	Record(ctx context.Context, t *task.Task, actor *task.User, action string) error

	// ListByTask returns a task's entries in append order.
	ListByTask(ctx context.Context, taskID int64) ([]*Entry, error)
}
