package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore implements Store in memory. Intended for tests and
// development.
type MemoryStore struct {
	notifications map[string]*Notification
	order         []string
	mu            sync.RWMutex
}

// NewMemoryStore creates an empty in-memory notification store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		notifications: make(map[string]*Notification),
	}
}

// Insert appends a notification record.
func (m *MemoryStore) Insert(ctx context.Context, n *Notification) error {
	if n == nil {
		return fmt.Errorf("notification cannot be nil")
	}
	if n.ID == "" {
		return fmt.Errorf("notification id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *n
	m.notifications[n.ID] = &cp
	m.order = append(m.order, n.ID)
	return nil
}

// ListByRecipient returns the recipient's notifications, newest first.
func (m *MemoryStore) ListByRecipient(ctx context.Context, recipientID int64) ([]*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Notification
	for _, id := range m.order {
		n := m.notifications[id]
		if n.RecipientID == recipientID {
			cp := *n
			out = append(out, &cp)
		}
	}
	// Stable newest-first: insertion order reversed, ties broken by time
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CountUnread returns the number of unread notifications.
func (m *MemoryStore) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead marks one notification read.
func (m *MemoryStore) MarkRead(ctx context.Context, id string, recipientID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	if n.RecipientID != recipientID {
		return fmt.Errorf("notification %s: %w", id, ErrNotRecipient)
	}
	n.Read = true
	return nil
}

// MarkAllRead marks all of the recipient's notifications read.
func (m *MemoryStore) MarkAllRead(ctx context.Context, recipientID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			n.Read = true
		}
	}
	return nil
}
