package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tasksync-hq/tasksync/pkg/task"
)

// Service creates durable notification records and pushes them to the
// recipient on a best-effort basis. A push failure is logged and never
// fails the record creation.
type Service struct {
	store  Store
	sender Sender
	logger *slog.Logger
}

// NewService creates a notification service. A nil sender disables
// real-time push.
func NewService(store Store, sender Sender, logger *slog.Logger) *Service {
	if sender == nil {
		sender = NoopSender{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		sender: sender,
		logger: logger.With("component", "notify"),
	}
}

// Create records a notification for the recipient and pushes it.
func (s *Service) Create(ctx context.Context, recipient *task.User, typ Type, message string, projectID, taskID int64) error {
	if recipient == nil {
		return fmt.Errorf("recipient cannot be nil")
	}

	n := &Notification{
		ID:          uuid.NewString(),
		RecipientID: recipient.ID,
		Type:        typ,
		Message:     message,
		ProjectID:   projectID,
		TaskID:      taskID,
		CreatedAt:   time.Now(),
	}

	if err := s.store.Insert(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	// Real-time push is best-effort
	if err := s.sender.Send(ctx, n); err != nil {
		s.logger.Warn("push delivery failed",
			"notification_id", n.ID,
			"recipient_id", recipient.ID,
			"error", err,
		)
	}

	return nil
}

// List returns the recipient's notifications, newest first.
func (s *Service) List(ctx context.Context, recipientID int64) ([]*Notification, error) {
	return s.store.ListByRecipient(ctx, recipientID)
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context, recipientID int64) (int64, error) {
	return s.store.CountUnread(ctx, recipientID)
}

// MarkRead marks one notification read on behalf of its recipient.
func (s *Service) MarkRead(ctx context.Context, id string, recipientID int64) error {
	return s.store.MarkRead(ctx, id, recipientID)
}

// MarkAllRead marks all of the recipient's notifications read.
func (s *Service) MarkAllRead(ctx context.Context, recipientID int64) error {
	return s.store.MarkAllRead(ctx, recipientID)
}
