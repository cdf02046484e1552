package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"tasksync-hq/tasksync/pkg/task"
)

// SQLiteStoreConfig configures the SQLite task store.
type SQLiteStoreConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore implements Store using SQLite.
//
// The breach and escalation transitions are single conditional UPDATE
// statements (WHERE flag = 0), so the "at most one transition per
// deadline episode" invariant holds across any number of concurrent
// writers sharing the database, including separate processes.
type SQLiteStore struct {
	db        *sql.DB
	logger    *slog.Logger
	closeOnce sync.Once

	markBreachedStmt  *sql.Stmt
	markEscalatedStmt *sql.Stmt
	findOverdueStmt   *sql.Stmt
}

// NewSQLiteStore opens (creating if necessary) a SQLite task store at the
// given path.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "task.storage.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("task store initialized", "path", cfg.Path)
	return s, nil
}

// DB exposes the underlying handle so the rule, notification, and
// activity stores can share one database file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("schema version mismatch: expected %d, got %d", SchemaVersion, version)
	}

	return s.prepareStatements()
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.markBreachedStmt, err = s.db.Prepare(
		`UPDATE tasks SET sla_breached = 1, updated_at = ? WHERE id = ? AND sla_breached = 0`)
	if err != nil {
		return fmt.Errorf("failed to prepare mark-breached statement: %w", err)
	}

	s.markEscalatedStmt, err = s.db.Prepare(
		`UPDATE tasks SET escalated = 1, updated_at = ? WHERE id = ? AND escalated = 0`)
	if err != nil {
		return fmt.Errorf("failed to prepare mark-escalated statement: %w", err)
	}

	s.findOverdueStmt, err = s.db.Prepare(taskSelect + `
		WHERE t.sla_hours IS NOT NULL
		  AND t.sla_deadline IS NOT NULL
		  AND t.sla_deadline <= ?
		  AND t.sla_breached = 0
		  AND t.status != ?
		ORDER BY t.id`)
	if err != nil {
		return fmt.Errorf("failed to prepare find-overdue statement: %w", err)
	}

	return nil
}

// taskSelect is the shared SELECT clause joining a task to its project,
// manager, assignee, and creator.
const taskSelect = `
	SELECT t.id, t.title, t.description, t.status, t.priority, t.due_date,
	       t.sla_hours, t.sla_deadline, t.sla_breached, t.escalated,
	       t.created_at, t.updated_at,
	       p.id, p.name, p.archived,
	       m.id, m.username, m.email,
	       a.id, a.username, a.email,
	       c.id, c.username, c.email
	FROM tasks t
	JOIN projects p ON p.id = t.project_id
	LEFT JOIN users m ON m.id = p.manager_id
	LEFT JOIN users a ON a.id = t.assignee_id
	LEFT JOIN users c ON c.id = t.created_by`

// Get returns the task with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %d: %w", id, err)
	}
	return t, nil
}

// Save upserts the task row by identity. Referenced projects and users
// must be saved first (SaveProject, SaveUser).
func (s *SQLiteStore) Save(ctx context.Context, t *task.Task) error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if t.ID == 0 {
		return fmt.Errorf("task id cannot be zero")
	}
	if t.Project == nil {
		return fmt.Errorf("task %d has no project", t.ID)
	}

	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	var assigneeID, createdBy any
	if t.Assignee != nil {
		assigneeID = t.Assignee.ID
	}
	if t.CreatedBy != nil {
		createdBy = t.CreatedBy.ID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, priority, due_date,
		                   sla_hours, sla_deadline, sla_breached, escalated,
		                   project_id, assignee_id, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			due_date = excluded.due_date,
			sla_hours = excluded.sla_hours,
			sla_deadline = excluded.sla_deadline,
			sla_breached = excluded.sla_breached,
			escalated = excluded.escalated,
			project_id = excluded.project_id,
			assignee_id = excluded.assignee_id,
			created_by = excluded.created_by,
			updated_at = excluded.updated_at`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority),
		unixOrNil(t.DueDate), intOrNil(t.SLAHours), unixOrNil(t.SLADeadline),
		boolToInt(t.SLABreached), boolToInt(t.Escalated),
		t.Project.ID, assigneeID, createdBy, t.CreatedAt.Unix(), t.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save task %d: %w", t.ID, err)
	}
	return nil
}

// SaveProject upserts a project row (and its manager, if set).
func (s *SQLiteStore) SaveProject(ctx context.Context, p *task.Project) error {
	if p == nil {
		return fmt.Errorf("project cannot be nil")
	}

	var managerID any
	if p.Manager != nil {
		if err := s.SaveUser(ctx, p.Manager); err != nil {
			return err
		}
		managerID = p.Manager.ID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, manager_id, archived)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			manager_id = excluded.manager_id,
			archived = excluded.archived`,
		p.ID, p.Name, managerID, boolToInt(p.Archived))
	if err != nil {
		return fmt.Errorf("failed to save project %d: %w", p.ID, err)
	}
	return nil
}

// SaveUser upserts a user row.
func (s *SQLiteStore) SaveUser(ctx context.Context, u *task.User) error {
	if u == nil {
		return fmt.Errorf("user cannot be nil")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			email = excluded.email`,
		u.ID, u.Username, u.Email)
	if err != nil {
		return fmt.Errorf("failed to save user %d: %w", u.ID, err)
	}
	return nil
}

// FindOverdue returns tasks with an active, unbreached SLA whose deadline
// has passed, excluding tasks in a terminal status.
func (s *SQLiteStore) FindOverdue(ctx context.Context, now time.Time) ([]*task.Task, error) {
	rows, err := s.findOverdueStmt.QueryContext(ctx, now.Unix(), string(task.StatusDone))
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue tasks: %w", err)
	}
	defer rows.Close()

	var overdue []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overdue task: %w", err)
		}
		overdue = append(overdue, t)
	}
	return overdue, rows.Err()
}

// SetPriority updates the task's priority.
func (s *SQLiteStore) SetPriority(ctx context.Context, id int64, p task.Priority) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET priority = ?, updated_at = ? WHERE id = ?`,
		string(p), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to set priority on task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// MarkBreached flips the breached flag in a single conditional UPDATE and
// reports whether this call performed the transition.
func (s *SQLiteStore) MarkBreached(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := s.markBreachedStmt.ExecContext(ctx, now.Unix(), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark task %d breached: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkEscalated flips the escalated flag in a single conditional UPDATE
// and reports whether this call performed the transition.
func (s *SQLiteStore) MarkEscalated(ctx context.Context, id int64, now time.Time) (bool, error) {
	res, err := s.markEscalatedStmt.ExecContext(ctx, now.Unix(), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark task %d escalated: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ResetSLA sets a new deadline and clears both SLA flags.
func (s *SQLiteStore) ResetSLA(ctx context.Context, id int64, deadline time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET sla_deadline = ?, sla_breached = 0, escalated = 0, updated_at = ?
		WHERE id = ?`,
		deadline.Unix(), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to reset SLA on task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// Close closes the database connection and prepared statements.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.markBreachedStmt, s.markEscalatedStmt, s.findOverdueStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*task.Task, error) {
	var (
		t                            task.Task
		description, priority        sql.NullString
		dueDate, slaDeadline         sql.NullInt64
		slaHours                     sql.NullInt64
		breached, escalated          int
		createdAt, updatedAt         int64
		projID                       int64
		projName                     string
		projArchived                 int
		mgrID, asgID, crtID          sql.NullInt64
		mgrName, asgName, crtName    sql.NullString
		mgrEmail, asgEmail, crtEmail sql.NullString
	)

	err := row.Scan(&t.ID, &t.Title, &description, (*string)(&t.Status), &priority, &dueDate,
		&slaHours, &slaDeadline, &breached, &escalated,
		&createdAt, &updatedAt,
		&projID, &projName, &projArchived,
		&mgrID, &mgrName, &mgrEmail,
		&asgID, &asgName, &asgEmail,
		&crtID, &crtName, &crtEmail)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.Priority = task.Priority(priority.String)
	t.SLABreached = breached == 1
	t.Escalated = escalated == 1
	t.CreatedAt = time.Unix(createdAt, 0)
	t.UpdatedAt = time.Unix(updatedAt, 0)

	if dueDate.Valid {
		d := time.Unix(dueDate.Int64, 0)
		t.DueDate = &d
	}
	if slaHours.Valid {
		h := int(slaHours.Int64)
		t.SLAHours = &h
	}
	if slaDeadline.Valid {
		d := time.Unix(slaDeadline.Int64, 0)
		t.SLADeadline = &d
	}

	t.Project = &task.Project{ID: projID, Name: projName, Archived: projArchived == 1}
	if mgrID.Valid {
		t.Project.Manager = &task.User{ID: mgrID.Int64, Username: mgrName.String, Email: mgrEmail.String}
	}
	if asgID.Valid {
		t.Assignee = &task.User{ID: asgID.Int64, Username: asgName.String, Email: asgEmail.String}
	}
	if crtID.Valid {
		t.CreatedBy = &task.User{ID: crtID.Int64, Username: crtName.String, Email: crtEmail.String}
	}

	return &t, nil
}

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func intOrNil(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
