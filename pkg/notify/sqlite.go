package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const notificationSchema = `
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    recipient_id INTEGER NOT NULL,
    type TEXT NOT NULL,
    message TEXT NOT NULL,
    project_id INTEGER,
    task_id INTEGER,
    read INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient
    ON notifications(recipient_id, created_at DESC);
`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	logger    *slog.Logger
	closeOnce sync.Once
	ownsDB    bool
}

// NewSQLiteStore opens (creating if necessary) a SQLite notification
// store at the given path.
func NewSQLiteStore(path string, busyTimeout time.Duration) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if busyTimeout == 0 {
		busyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		path, int(busyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "notify.sqlite"),
		ownsDB: true,
	}

	if _, err := db.Exec(notificationSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create notification schema: %w", err)
	}

	return s, nil
}

// NewSQLiteStoreWithDB wraps an existing database handle. The caller
// retains ownership of the handle and is responsible for closing it.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if _, err := db.Exec(notificationSchema); err != nil {
		return nil, fmt.Errorf("failed to create notification schema: %w", err)
	}
	return &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "notify.sqlite"),
	}, nil
}

// Insert appends a notification record.
func (s *SQLiteStore) Insert(ctx context.Context, n *Notification) error {
	if n == nil {
		return fmt.Errorf("notification cannot be nil")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, type, message, project_id, task_id, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, string(n.Type), n.Message, n.ProjectID, n.TaskID,
		boolToInt(n.Read), n.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert notification %s: %w", n.ID, err)
	}
	return nil
}

// ListByRecipient returns the recipient's notifications, newest first.
func (s *SQLiteStore) ListByRecipient(ctx context.Context, recipientID int64) ([]*Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient_id, type, message, project_id, task_id, read, created_at
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC, id`,
		recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var (
			n         Notification
			typ       string
			read      int
			createdAt int64
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &typ, &n.Message,
			&n.ProjectID, &n.TaskID, &read, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = Type(typ)
		n.Read = read == 1
		n.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &n)
	}
	return out, rows.Err()
}

// CountUnread returns the number of unread notifications.
func (s *SQLiteStore) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND read = 0`,
		recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read, enforcing recipient ownership.
func (s *SQLiteStore) MarkRead(ctx context.Context, id string, recipientID int64) error {
	var owner int64
	err := s.db.QueryRowContext(ctx,
		`SELECT recipient_id FROM notifications WHERE id = ?`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load notification %s: %w", id, err)
	}
	if owner != recipientID {
		return fmt.Errorf("notification %s: %w", id, ErrNotRecipient)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks all of the recipient's notifications read.
func (s *SQLiteStore) MarkAllRead(ctx context.Context, recipientID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE recipient_id = ?`, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// Close closes the store's database handle if the store owns it.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.ownsDB {
			err = s.db.Close()
		}
	})
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
