package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tasksync-hq/tasksync/pkg/task"
)

// MemoryRecorder implements Recorder in memory.
type MemoryRecorder struct {
	entries []*Entry
	mu      sync.RWMutex
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends an entry.
func (m *MemoryRecorder) Record(ctx context.Context, t *task.Task, actor *task.User, action string) error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}

	e := &Entry{
		ID:        uuid.NewString(),
		TaskID:    t.ID,
		Action:    action,
		CreatedAt: time.Now(),
	}
	if actor != nil {
		e.ActorID = actor.ID
		e.Actor = actor.Username
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// ListByTask returns a task's entries in append order.
func (m *MemoryRecorder) ListByTask(ctx context.Context, taskID int64) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Entry
	for _, e := range m.entries {
		if e.TaskID == taskID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}
