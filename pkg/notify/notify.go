package notify

import (
	"context"
	"errors"
	"time"
)

// Type classifies a notification.
type Type string

const (
	TypeTaskAssigned      Type = "TASK_ASSIGNED"
	TypeTaskStatusChanged Type = "TASK_STATUS_CHANGED"
	TypeSLABreached       Type = "SLA_BREACHED"
	TypeSLAEscalated      Type = "SLA_ESCALATED"
	TypeWorkflowTriggered Type = "WORKFLOW_TRIGGERED"
	TypeProjectArchived   Type = "PROJECT_ARCHIVED"
)

// Notification is a durable record of a message delivered to a user.
type Notification struct {
	ID          string
	RecipientID int64
	Type        Type
	Message     string
	ProjectID   int64
	TaskID      int64
	Read        bool
	CreatedAt   time.Time
}

var (
	// ErrNotFound is returned when a notification does not exist.
	ErrNotFound = errors.New("notification not found")

	// ErrNotRecipient is returned when a user tries to modify a
	// notification addressed to someone else.
	ErrNotRecipient = errors.New("not the notification recipient")
)

// Store persists notification records.
type Store interface {
	// Insert appends a new notification record.
	Insert(ctx context.Context, n *Notification) error

	// ListByRecipient returns the recipient's notifications, newest
	// first.
	ListByRecipient(ctx context.Context, recipientID int64) ([]*Notification, error)

	// CountUnread returns the number of unread notifications for the
	// recipient.
	CountUnread(ctx context.Context, recipientID int64) (int64, error)

	// MarkRead marks one notification read. It fails with
	// ErrNotRecipient if the notification belongs to another user.
	MarkRead(ctx context.Context, id string, recipientID int64) error

	// MarkAllRead marks all of the recipient's notifications read.
	MarkAllRead(ctx context.Context, recipientID int64) error
}

// Sender pushes a notification to the recipient in real time. Delivery
// transport is external to this module; push failures are best-effort
// and never fail record creation.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// NoopSender discards all pushes. It is the default when no real-time
// transport is wired.
type NoopSender struct{}

// Send implements Sender.
func (NoopSender) Send(ctx context.Context, n *Notification) error { return nil }
