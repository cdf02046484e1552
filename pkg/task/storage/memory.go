package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tasksync-hq/tasksync/pkg/task"
)

// MemoryStore implements Store using in-memory storage. All data is lost
// when the process exits; it is intended for tests and single-process
// development setups.
//
// MemoryStore is thread-safe. The conditional transitions (MarkBreached,
// MarkEscalated) are performed under the store mutex, mirroring the
// single-statement conditional updates of the SQLite backend.
type MemoryStore struct {
	tasks map[int64]*task.Task
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory task store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[int64]*task.Task),
	}
}

// Get returns the task with the given id.
func (m *MemoryStore) Get(ctx context.Context, id int64) (*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

// Save upserts the task by identity.
func (m *MemoryStore) Save(ctx context.Context, t *task.Task) error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if t.ID == 0 {
		return fmt.Errorf("task id cannot be zero")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	cp := *t
	m.tasks[t.ID] = &cp

	return nil
}

// FindOverdue returns tasks with an active, unbreached SLA whose deadline
// is before now, excluding tasks in a terminal status. Results are
// ordered by id for a repeatable scan order.
func (m *MemoryStore) FindOverdue(ctx context.Context, now time.Time) ([]*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var overdue []*task.Task
	for _, t := range m.tasks {
		if t.SLAHours == nil || t.SLADeadline == nil {
			continue
		}
		if t.SLABreached || t.Status.Terminal() {
			continue
		}
		if t.SLADeadline.After(now) {
			continue
		}
		cp := *t
		overdue = append(overdue, &cp)
	}

	sort.Slice(overdue, func(i, j int) bool { return overdue[i].ID < overdue[j].ID })
	return overdue, nil
}

// SetPriority updates the task's priority.
func (m *MemoryStore) SetPriority(ctx context.Context, id int64, p task.Priority) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	t.Priority = p
	t.UpdatedAt = time.Now()
	return nil
}

// MarkBreached flips the breached flag if it is currently clear and
// reports whether this call performed the transition.
func (m *MemoryStore) MarkBreached(ctx context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return false, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if t.SLABreached {
		return false, nil
	}
	t.SLABreached = true
	t.UpdatedAt = now
	return true, nil
}

// MarkEscalated flips the escalated flag if it is currently clear and
// reports whether this call performed the transition.
func (m *MemoryStore) MarkEscalated(ctx context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return false, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if t.Escalated {
		return false, nil
	}
	t.Escalated = true
	t.UpdatedAt = now
	return true, nil
}

// ResetSLA sets a new deadline and clears both SLA flags.
func (m *MemoryStore) ResetSLA(ctx context.Context, id int64, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	d := deadline
	t.SLADeadline = &d
	t.SLABreached = false
	t.Escalated = false
	t.UpdatedAt = time.Now()
	return nil
}
