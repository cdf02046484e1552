package task

import (
	"testing"
	"time"
)

func TestStatusValid(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusTodo, true},
		{StatusInProgress, true},
		{StatusDone, true},
		{Status("BLOCKED"), false},
		{Status(""), false},
		{Status("done"), false},
	}
	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.want {
			t.Errorf("Status(%q).Valid() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if !StatusDone.Terminal() {
		t.Error("DONE should be terminal")
	}
	if StatusTodo.Terminal() || StatusInProgress.Terminal() {
		t.Error("open statuses should not be terminal")
	}
}

func TestDefaultPriorities(t *testing.T) {
	got := DefaultPriorities()
	want := []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
	if len(got) != len(want) {
		t.Fatalf("got %d priorities, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("priority[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestComputeDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	hours := 24
	withSLA := &Task{SLAHours: &hours}
	if got, want := withSLA.ComputeDeadline(now), now.Add(24*time.Hour); !got.Equal(want) {
		t.Errorf("ComputeDeadline() = %v, want %v", got, want)
	}
	if !withSLA.HasSLA() {
		t.Error("HasSLA() = false for a task with configured hours")
	}

	withoutSLA := &Task{}
	if got := withoutSLA.ComputeDeadline(now); !got.IsZero() {
		t.Errorf("ComputeDeadline() = %v, want zero time", got)
	}
	if withoutSLA.HasSLA() {
		t.Error("HasSLA() = true for a task without configured hours")
	}
}
