package activity

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"tasksync-hq/tasksync/pkg/task"
)

const activitySchema = `
CREATE TABLE IF NOT EXISTS task_activities (
    id TEXT PRIMARY KEY,
    task_id INTEGER NOT NULL,
    actor_id INTEGER,
    actor TEXT,
    action TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activities_task
    ON task_activities(task_id, created_at);
`

// SQLiteRecorder implements Recorder using SQLite.
type SQLiteRecorder struct {
	db        *sql.DB
	closeOnce sync.Once
	ownsDB    bool
}

// NewSQLiteRecorder opens (creating if necessary) a SQLite activity log
// at the given path.
func NewSQLiteRecorder(path string, busyTimeout time.Duration) (*SQLiteRecorder, error) {
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

	if _, err := db.Exec(activitySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create activity schema: %w", err)
	}

	return &SQLiteRecorder{db: db, ownsDB: true}, nil
}

// NewSQLiteRecorderWithDB wraps an existing database handle. The caller
// retains ownership of the handle.
func NewSQLiteRecorderWithDB(db *sql.DB) (*SQLiteRecorder, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if _, err := db.Exec(activitySchema); err != nil {
		return nil, fmt.Errorf("failed to create activity schema: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

// Record appends an entry.
func (s *SQLiteRecorder) Record(ctx context.Context, t *task.Task, actor *task.User, action string) error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}

	var actorID any
	var actorName string
	if actor != nil {
		actorID = actor.ID
		actorName = actor.Username
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_activities (id, task_id, actor_id, actor, action, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), t.ID, actorID, actorName, action, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record activity for task %d: %w", t.ID, err)
	}
	return nil
}

// ListByTask returns a task's entries in append order.
func (s *SQLiteRecorder) ListByTask(ctx context.Context, taskID int64) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, actor_id, actor, action, created_at
		FROM task_activities
		WHERE task_id = ?
		ORDER BY created_at, id`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var (
			e         Entry
			actorID   sql.NullInt64
			actor     sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &actorID, &actor, &e.Action, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		e.ActorID = actorID.Int64
		e.Actor = actor.String
		e.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Close closes the recorder's database handle if the recorder owns it.
func (s *SQLiteRecorder) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.ownsDB {
			err = s.db.Close()
		}
	})
	return err
}
