package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"tasksync-hq/tasksync/pkg/task"
)

func slaTask(id int64, deadline time.Time) *task.Task {
	hours := 8
	d := deadline
	return &task.Task{
		ID:          id,
		Title:       "Task with SLA",
		Status:      task.StatusInProgress,
		Priority:    task.PriorityMedium,
		SLAHours:    &hours,
		SLADeadline: &d,
	}
}

func TestMemoryStoreGetSave(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() on empty store = %v, want ErrNotFound", err)
	}

	ts := &task.Task{ID: 1, Title: "First", Status: task.StatusTodo, Priority: task.PriorityLow}
	if err := s.Save(ctx, ts); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "First" {
		t.Errorf("title = %q", got.Title)
	}

	// Returned copy must not alias stored state.
	got.Title = "mutated"
	again, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if again.Title != "First" {
		t.Error("Get() returned a task aliasing store internals")
	}

	// Save is an upsert.
	ts.Title = "First, revised"
	if err := s.Save(ctx, ts); err != nil {
		t.Fatal(err)
	}
	updated, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "First, revised" {
		t.Errorf("title after upsert = %q", updated.Title)
	}
}

func TestMemoryStoreSaveValidation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, nil); err == nil {
		t.Error("Save(nil) = nil, want error")
	}
	if err := s.Save(ctx, &task.Task{Title: "no id"}); err == nil {
		t.Error("Save() with zero id = nil, want error")
	}
}

func TestMemoryStoreFindOverdue(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	overdue := slaTask(1, past)
	notYet := slaTask(2, future)
	alreadyBreached := slaTask(3, past)
	alreadyBreached.SLABreached = true
	done := slaTask(4, past)
	done.Status = task.StatusDone
	noSLA := &task.Task{ID: 5, Title: "No SLA", Status: task.StatusTodo, Priority: task.PriorityLow}
	alsoOverdue := slaTask(6, past)

	for _, ts := range []*task.Task{overdue, notYet, alreadyBreached, done, noSLA, alsoOverdue} {
		if err := s.Save(ctx, ts); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.FindOverdue(ctx, now)
	if err != nil {
		t.Fatalf("FindOverdue() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d overdue tasks, want 2", len(got))
	}
	// Ordered by id for a repeatable scan.
	if got[0].ID != 1 || got[1].ID != 6 {
		t.Errorf("overdue ids = %d, %d, want 1, 6", got[0].ID, got[1].ID)
	}
}

func TestMemoryStoreDeadlineBoundary(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// A deadline exactly at the scan instant counts as overdue.
	if err := s.Save(ctx, slaTask(1, now)); err != nil {
		t.Fatal(err)
	}

	got, err := s.FindOverdue(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("got %d overdue tasks for deadline == now, want 1", len(got))
	}
}

func TestMemoryStoreMarkBreachedOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	if err := s.Save(ctx, slaTask(1, now.Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}

	first, err := s.MarkBreached(ctx, 1, now)
	if err != nil {
		t.Fatalf("MarkBreached() error = %v", err)
	}
	if !first {
		t.Error("first MarkBreached() = false, want transition")
	}

	second, err := s.MarkBreached(ctx, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	if second {
		t.Error("second MarkBreached() = true, want no-op")
	}

	if _, err := s.MarkBreached(ctx, 99, now); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkBreached() on unknown id = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreMarkEscalatedOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	if err := s.Save(ctx, slaTask(1, now.Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}

	first, err := s.MarkEscalated(ctx, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.MarkEscalated(ctx, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	if !first || second {
		t.Errorf("MarkEscalated() = %v then %v, want true then false", first, second)
	}
}

func TestMemoryStoreResetSLA(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	ts := slaTask(1, now.Add(-time.Hour))
	ts.SLABreached = true
	ts.Escalated = true
	if err := s.Save(ctx, ts); err != nil {
		t.Fatal(err)
	}

	deadline := now.Add(8 * time.Hour)
	if err := s.ResetSLA(ctx, 1, deadline); err != nil {
		t.Fatalf("ResetSLA() error = %v", err)
	}

	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.SLABreached || got.Escalated {
		t.Error("ResetSLA() did not clear the flags")
	}
	if got.SLADeadline == nil || !got.SLADeadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", got.SLADeadline, deadline)
	}

	// The flags can transition again in the new episode.
	ok, err := s.MarkBreached(ctx, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("MarkBreached() after reset = false, want a fresh episode")
	}
}

func TestMemoryStoreSetPriority(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, &task.Task{ID: 1, Title: "x", Status: task.StatusTodo, Priority: task.PriorityLow}); err != nil {
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
