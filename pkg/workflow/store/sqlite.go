package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"tasksync-hq/tasksync/pkg/workflow"
)

const ruleSchema = `
CREATE TABLE IF NOT EXISTS workflow_rules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    event_type TEXT NOT NULL,
    conditions TEXT,
    actions TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_event
    ON workflow_rules(event_type, enabled);
`

// SQLiteStore implements Store using SQLite. The engine's read path
// (FindEnabled) returns rules ordered by id, which gives the
// store-defined repeatable order the dispatch contract requires.
type SQLiteStore struct {
	db        *sql.DB
	logger    *slog.Logger
	closeOnce sync.Once
	ownsDB    bool

	findEnabledStmt *sql.Stmt
}

// NewSQLiteStore opens (creating if necessary) a SQLite rule store at
// the given path.
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

	s, err := newSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true

	s.logger.Info("rule store initialized", "path", path)
	return s, nil
}

// NewSQLiteStoreWithDB wraps an existing database handle. The caller
// retains ownership of the handle.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	return newSQLiteStore(db)
}

func newSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(ruleSchema); err != nil {
		return nil, fmt.Errorf("failed to create rule schema: %w", err)
	}

	findEnabledStmt, err := db.Prepare(`
		SELECT id, event_type, conditions, actions, enabled, created_at, updated_at
		FROM workflow_rules
		WHERE event_type = ? AND enabled = 1
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare find-enabled statement: %w", err)
	}

	return &SQLiteStore{
		db:              db,
		logger:          slog.Default().With("component", "workflow.store.sqlite"),
		findEnabledStmt: findEnabledStmt,
	}, nil
}

// FindEnabled returns enabled rules for the event type in id order.
func (s *SQLiteStore) FindEnabled(ctx context.Context, eventType workflow.EventType) ([]*workflow.Rule, error) {
	rows, err := s.findEnabledStmt.QueryContext(ctx, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("failed to query rules for %s: %w", eventType, err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// Create inserts a rule. A zero ID is assigned by the database.
func (s *SQLiteStore) Create(ctx context.Context, r *workflow.Rule) error {
	if r == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if !r.EventType.Valid() {
		return fmt.Errorf("unknown event type: %q", r.EventType)
	}

	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now

	if r.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO workflow_rules (id, event_type, conditions, actions, enabled, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, string(r.EventType), r.Conditions, r.Actions, boolToInt(r.Enabled),
			now.Unix(), now.Unix())
		if err != nil {
			return fmt.Errorf("failed to create rule %d: %w", r.ID, err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO workflow_rules (event_type, conditions, actions, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(r.EventType), r.Conditions, r.Actions, boolToInt(r.Enabled),
		now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

// Update replaces a rule's event type, payloads, and enabled flag.
func (s *SQLiteStore) Update(ctx context.Context, r *workflow.Rule) error {
	if r == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if !r.EventType.Valid() {
		return fmt.Errorf("unknown event type: %q", r.EventType)
	}

	r.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE workflow_rules
		SET event_type = ?, conditions = ?, actions = ?, enabled = ?, updated_at = ?
		WHERE id = ?`,
		string(r.EventType), r.Conditions, r.Actions, boolToInt(r.Enabled),
		r.UpdatedAt.Unix(), r.ID)
	if err != nil {
		return fmt.Errorf("failed to update rule %d: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("rule %d: %w", r.ID, ErrNotFound)
	}
	return nil
}

// SetEnabled toggles a rule.
func (s *SQLiteStore) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE workflow_rules SET enabled = ?, updated_at = ? WHERE id = ?`,
		boolToInt(enabled), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to toggle rule %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a rule.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflow_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	return nil
}

// List returns all rules in id order.
func (s *SQLiteStore) List(ctx context.Context) ([]*workflow.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, conditions, actions, enabled, created_at, updated_at
		FROM workflow_rules
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// Close closes the prepared statements and, if the store owns it, the
// database handle.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.findEnabledStmt != nil {
			s.findEnabledStmt.Close()
		}
		if s.ownsDB {
			err = s.db.Close()
		}
	})
	return err
}

func scanRules(rows *sql.Rows) ([]*workflow.Rule, error) {
	var out []*workflow.Rule
	for rows.Next() {
		var (
			r                    workflow.Rule
			eventType            string
			conditions           sql.NullString
			enabled              int
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&r.ID, &eventType, &conditions, &r.Actions,
			&enabled, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.EventType = workflow.EventType(eventType)
		r.Conditions = conditions.String
		r.Enabled = enabled == 1
		r.CreatedAt = time.Unix(createdAt, 0)
		r.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
