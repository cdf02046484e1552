package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tasksync-hq/tasksync/pkg/workflow"
)

// MemoryStore implements Store in memory. Intended for tests and as the
// backing collection behind FileSource.
type MemoryStore struct {
	rules  map[int64]*workflow.Rule
	nextID int64
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory rule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:  make(map[int64]*workflow.Rule),
		nextID: 1,
	}
}

// FindEnabled returns enabled rules for the event type in id order.
func (m *MemoryStore) FindEnabled(ctx context.Context, eventType workflow.EventType) ([]*workflow.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*workflow.Rule
	for _, r := range m.rules {
		if r.EventType == eventType && r.Enabled {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Create inserts a rule, assigning an ID if the rule has none.
func (m *MemoryStore) Create(ctx context.Context, r *workflow.Rule) error {
	if r == nil {
		return fmt.Errorf("rule cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == 0 {
		r.ID = m.nextID
	}
	if r.ID >= m.nextID {
		m.nextID = r.ID + 1
	}

	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now

	cp := *r
	m.rules[r.ID] = &cp
	return nil
}

// Update replaces a rule by id.
func (m *MemoryStore) Update(ctx context.Context, r *workflow.Rule) error {
	if r == nil {
		return fmt.Errorf("rule cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.rules[r.ID]
	if !ok {
		return fmt.Errorf("rule %d: %w", r.ID, ErrNotFound)
	}

	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now()
	cp := *r
	m.rules[r.ID] = &cp
	return nil
}

// SetEnabled toggles a rule.
func (m *MemoryStore) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[id]
	if !ok {
		return fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	r.Enabled = enabled
	r.UpdatedAt = time.Now()
	return nil
}

// Delete removes a rule.
func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[id]; !ok {
		return fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	delete(m.rules, id)
	return nil
}

// List returns all rules in id order.
func (m *MemoryStore) List(ctx context.Context) ([]*workflow.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*workflow.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// replaceAll atomically swaps the store contents. Used by FileSource on
// reload.
func (m *MemoryStore) replaceAll(rules []*workflow.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules = make(map[int64]*workflow.Rule, len(rules))
	m.nextID = 1
	for _, r := range rules {
		cp := *r
		m.rules[r.ID] = &cp
		if r.ID >= m.nextID {
			m.nextID = r.ID + 1
		}
	}
}
