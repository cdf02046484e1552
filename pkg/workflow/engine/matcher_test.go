package engine

import (
	"testing"
	"time"

	"tasksync-hq/tasksync/pkg/task"
	"tasksync-hq/tasksync/pkg/workflow"
)

func sampleTask() *task.Task {
	manager := &task.User{ID: 1, Username: "pm", Email: "pm@example.com"}
	assignee := &task.User{ID: 2, Username: "dev", Email: "dev@example.com"}
	creator := &task.User{ID: 3, Username: "reporter", Email: "reporter@example.com"}
	hours := 8
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &task.Task{
		ID:          42,
		Title:       "Fix login timeout",
		Status:      task.StatusInProgress,
		Priority:    task.PriorityHigh,
		Assignee:    assignee,
		CreatedBy:   creator,
		Project:     &task.Project{ID: 7, Name: "Portal", Manager: manager},
		SLAHours:    &hours,
		SLADeadline: &deadline,
	}
}

func TestMatcherMatches(t *testing.T) {
	m := NewMatcher(nil)
	evCtx := workflow.TaskStatusChanged(sampleTask(), task.StatusTodo)

	tests := []struct {
		name       string
		conditions string
		want       bool
		wantErr    bool
	}{
		{
			name:       "empty conditions match vacuously",
			conditions: "",
			want:       true,
		},
		{
			name:       "empty object matches vacuously",
			conditions: "{}",
			want:       true,
		},
		{
			name:       "single equality",
			conditions: `{"status": "IN_PROGRESS"}`,
			want:       true,
		},
		{
			name:       "all conditions must hold",
			conditions: `{"status": "IN_PROGRESS", "priority": "HIGH", "project": "Portal"}`,
			want:       true,
		},
		{
			name:       "one mismatch fails the whole set",
			conditions: `{"status": "IN_PROGRESS", "priority": "LOW"}`,
			want:       false,
		},
		{
			name:       "missing context key fails closed",
			conditions: `{"nonexistent": "anything"}`,
			want:       false,
		},
		{
			name:       "numeric id compares canonically",
			conditions: `{"taskId": 42}`,
			want:       true,
		},
		{
			name:       "boolean compares canonically",
			conditions: `{"slaBreached": false}`,
			want:       true,
		},
		{
			name:       "previous status exposed on status change",
			conditions: `{"previousStatus": "TODO"}`,
			want:       true,
		},
		{
			name:       "case sensitive values",
			conditions: `{"status": "in_progress"}`,
			want:       false,
		},
		{
			name:       "malformed payload is an error",
			conditions: `{"status": `,
			want:       false,
			wantErr:    true,
		},
		{
			name:       "non-object payload is an error",
			conditions: `["status"]`,
			want:       false,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Matches(tt.conditions, evCtx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Matches() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatcherProjectArchivedContext(t *testing.T) {
	m := NewMatcher(nil)
	p := &task.Project{ID: 7, Name: "Portal", Archived: true, Manager: &task.User{ID: 1, Username: "pm"}}
	evCtx := workflow.ProjectArchived(p)

	ok, err := m.Matches(`{"archived": true, "project": "Portal"}`, evCtx)
	if err != nil {
		t.Fatalf("Matches() error = %v", err)
	}
	if !ok {
		t.Error("expected archived project conditions to match")
	}

	// Task fields do not exist on a project event.
	ok, err = m.Matches(`{"status": "DONE"}`, evCtx)
	if err != nil {
		t.Fatalf("Matches() error = %v", err)
	}
	if ok {
		t.Error("task-scoped condition should fail closed on a project event")
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "HIGH", "HIGH"},
		{"bool", true, "true"},
		{"whole float", float64(8), "8"},
		{"fractional float", 1.5, "1.5"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canonical(tt.in); got != tt.want {
				t.Errorf("canonical(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
