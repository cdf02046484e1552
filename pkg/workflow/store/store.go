package store

import (
	"context"
	"errors"

	"tasksync-hq/tasksync/pkg/workflow"
)

// ErrNotFound is returned when a rule does not exist.
var ErrNotFound = errors.New("rule not found")

// Source is the engine-facing read path: enabled rules for one event
// type in a fixed, repeatable order. The engine never mutates rules.
type Source interface {
	FindEnabled(ctx context.Context, eventType workflow.EventType) ([]*workflow.Rule, error)
}

// Store is the administrative contract over a durable rule collection.
// Rule payloads are stored as serialized JSON text and are not parsed at
// save time; malformed payloads surface only when a matching event is
// dispatched.
type Store interface {
	Source

	// Create inserts a rule. A zero ID is assigned by the store.
	Create(ctx context.Context, r *workflow.Rule) error

	// Update replaces a rule's event type, payloads, and enabled flag.
	Update(ctx context.Context, r *workflow.Rule) error

	// SetEnabled toggles a rule without deleting it.
	SetEnabled(ctx context.Context, id int64, enabled bool) error

	// Delete removes a rule.
	Delete(ctx context.Context, id int64) error

	// List returns all rules in id order.
	List(ctx context.Context) ([]*workflow.Rule, error)
}
