package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tasksync-hq/tasksync/pkg/task"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(SQLiteStoreConfig{
		Path: filepath.Join(t.TempDir(), "tasksync.db"),
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedGraph(t *testing.T, s *SQLiteStore) (*task.Project, *task.User, *task.User) {
	t.Helper()
	ctx := context.Background()

	manager := &task.User{ID: 1, Username: "pm", Email: "pm@example.com"}
	assignee := &task.User{ID: 2, Username: "dev", Email: "dev@example.com"}
	project := &task.Project{ID: 7, Name: "Portal", Manager: manager}

	if err := s.SaveProject(ctx, project); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveUser(ctx, assignee); err != nil {
		t.Fatal(err)
	}
	return project, manager, assignee
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	project, _, assignee := seedGraph(t, s)

	hours := 8
	deadline := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)
	ts := &task.Task{
		ID:          42,
		Title:       "Fix login timeout",
		Description: "Session cookie expires too early",
		Status:      task.StatusInProgress,
		Priority:    task.PriorityHigh,
		SLAHours:    &hours,
		SLADeadline: &deadline,
		Project:     project,
		Assignee:    assignee,
	}
	if err := s.Save(ctx, ts); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Get(ctx, 42)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != ts.Title || got.Description != ts.Description {
		t.Errorf("got %q/%q", got.Title, got.Description)
	}
	if got.Status != task.StatusInProgress || got.Priority != task.PriorityHigh {
		t.Errorf("status/priority = %q/%q", got.Status, got.Priority)
	}
	if got.SLAHours == nil || *got.SLAHours != 8 {
		t.Errorf("sla hours = %v", got.SLAHours)
	}
	if got.SLADeadline == nil || !got.SLADeadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", got.SLADeadline, deadline)
	}
	if got.Project == nil || got.Project.Name != "Portal" {
		t.Errorf("project = %+v", got.Project)
	}
	if got.Project.Manager == nil || got.Project.Manager.Username != "pm" {
		t.Errorf("manager = %+v", got.Project.Manager)
	}
	if got.Assignee == nil || got.Assignee.Username != "dev" {
		t.Errorf("assignee = %+v", got.Assignee)
	}
	if got.CreatedBy != nil {
		t.Errorf("creator = %+v, want nil", got.CreatedBy)
	}
}

func TestSQLiteStoreGetUnknown(t *testing.T) {
	s := newTestSQLiteStore(t)

	if _, err := s.Get(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreUpsert(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	project, _, _ := seedGraph(t, s)

	ts := &task.Task{ID: 1, Title: "v1", Status: task.StatusTodo, Priority: task.PriorityLow, Project: project}
	if err := s.Save(ctx, ts); err != nil {
		t.Fatal(err)
	}

	ts.Title = "v2"
	ts.Status = task.StatusInProgress
	if err := s.Save(ctx, ts); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "v2" || got.Status != task.StatusInProgress {
		t.Errorf("after upsert: %q %q", got.Title, got.Status)
	}
}

func TestSQLiteStoreFindOverdue(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	project, _, _ := seedGraph(t, s)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	hours := 4
	save := func(id int64, deadline time.Time, mutate func(*task.Task)) {
		t.Helper()
		d := deadline
		ts := &task.Task{
			ID:          id,
			Title:       "t",
			Status:      task.StatusInProgress,
			Priority:    task.PriorityMedium,
			SLAHours:    &hours,
			SLADeadline: &d,
			Project:     project,
		}
		if mutate != nil {
			mutate(ts)
		}
		if err := s.Save(ctx, ts); err != nil {
			t.Fatal(err)
		}
	}

	save(1, now.Add(-time.Hour), nil)
	save(2, now.Add(time.Hour), nil)
	save(3, now.Add(-time.Hour), func(ts *task.Task) { ts.SLABreached = true })
	save(4, now.Add(-time.Hour), func(ts *task.Task) { ts.Status = task.StatusDone })
	save(5, now.Add(-time.Hour), func(ts *task.Task) { ts.SLAHours = nil; ts.SLADeadline = nil })
	save(6, now.Add(-2*time.Hour), nil)

	got, err := s.FindOverdue(ctx, now)
	if err != nil {
		t.Fatalf("FindOverdue() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d overdue tasks, want 2", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 6 {
		t.Errorf("overdue ids = %d, %d, want 1, 6", got[0].ID, got[1].ID)
	}
}

func TestSQLiteStoreConditionalTransitions(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	project, _, _ := seedGraph(t, s)
	now := time.Now()

	hours := 4
	deadline := now.Add(-time.Hour)
	ts := &task.Task{
		ID: 1, Title: "t", Status: task.StatusInProgress, Priority: task.PriorityMedium,
		SLAHours: &hours, SLADeadline: &deadline, Project: project,
	}
	if err := s.Save(ctx, ts); err != nil {
		t.Fatal(err)
	}

	first, err := s.MarkBreached(ctx, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.MarkBreached(ctx, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	if !first || second {
		t.Errorf("MarkBreached() = %v then %v, want true then false", first, second)
	}

	// Unknown id is not an error, just no transition.
	ok, err := s.MarkBreached(ctx, 99, now)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("MarkBreached() on unknown id = true")
	}

	firstEsc, err := s.MarkEscalated(ctx, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	secondEsc, err := s.MarkEscalated(ctx, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	if !firstEsc || secondEsc {
		t.Errorf("MarkEscalated() = %v then %v, want true then false", firstEsc, secondEsc)
	}

	// Reset opens a fresh episode for both flags.
	if err := s.ResetSLA(ctx, 1, now.Add(8*time.Hour)); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.SLABreached || got.Escalated {
		t.Error("ResetSLA() did not clear the flags")
	}
	again, err := s.MarkBreached(ctx, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	if !again {
		t.Error("MarkBreached() after reset = false, want a fresh episode")
	}
}

func TestSQLiteStoreSetPriority(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	project, _, _ := seedGraph(t, s)

	ts := &task.Task{ID: 1, Title: "t", Status: task.StatusTodo, Priority: task.PriorityLow, Project: project}
	if err := s.Save(ctx, ts); err != nil {
		t.Fatal(err)
	}

	if err := s.SetPriority(ctx, 1, task.PriorityCritical); err != nil {
		t.Fatalf("SetPriority() error = %v", err)
	}
	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Priority != task.PriorityCritical {
		t.Errorf("priority = %q", got.Priority)
	}

	if err := s.SetPriority(ctx, 99, task.PriorityLow); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetPriority() on unknown id = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasksync.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(SQLiteStoreConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	project, _, _ := seedGraph(t, s)
	ts := &task.Task{ID: 1, Title: "survives", Status: task.StatusTodo, Priority: task.PriorityLow, Project: project}
	if err := s.Save(ctx, ts); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteStore(SQLiteStoreConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "survives" {
		t.Errorf("title = %q", got.Title)
	}
}
