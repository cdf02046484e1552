package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tasksync-hq/tasksync/pkg/workflow"
)

func writeRuleFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileSourceSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeRuleFile(t, dir, "rules.yaml", `
rules:
  - event_type: TASK_CREATED
    conditions:
      priority: CRITICAL
    actions:
      notify: [MANAGER]
  - event_type: TASK_SLA_BREACHED
    actions:
      escalate: true
    enabled: false
`)

	s, err := NewFileSource(path, nil)
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}

	all, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d rules, want 2", len(all))
	}
	if all[0].ID != 1 || all[1].ID != 2 {
		t.Errorf("ids = %d, %d, want sequential from 1", all[0].ID, all[1].ID)
	}

	enabled, err := s.FindEnabled(context.Background(), workflow.EventTaskSLABreached)
	if err != nil {
		t.Fatal(err)
	}
	if len(enabled) != 0 {
		t.Error("explicitly disabled rule was served")
	}

	created, err := s.FindEnabled(context.Background(), workflow.EventTaskCreated)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 {
		t.Fatalf("got %d rules for TASK_CREATED, want 1", len(created))
	}
	if created[0].Conditions != `{"priority":"CRITICAL"}` {
		t.Errorf("conditions = %q", created[0].Conditions)
	}
	if created[0].Actions != `{"notify":["MANAGER"]}` {
		t.Errorf("actions = %q", created[0].Actions)
	}
}

func TestFileSourceDirectoryOrder(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "20-second.yaml", `
rules:
  - event_type: TASK_UPDATED
    actions:
      resetSla: true
`)
	writeRuleFile(t, dir, "10-first.yaml", `
rules:
  - event_type: TASK_CREATED
    actions:
      notify: [ASSIGNEE]
`)
	writeRuleFile(t, dir, "ignored.txt", "not yaml")

	s, err := NewFileSource(dir, nil)
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}

	all, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d rules, want 2", len(all))
	}
	// Filename order decides rule ids.
	if all[0].EventType != workflow.EventTaskCreated {
		t.Errorf("rule 1 event = %q, want TASK_CREATED from 10-first.yaml", all[0].EventType)
	}
	if all[1].EventType != workflow.EventTaskUpdated {
		t.Errorf("rule 2 event = %q, want TASK_UPDATED from 20-second.yaml", all[1].EventType)
	}
}

func TestFileSourceSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "bad.yaml", "rules: [unclosed")
	writeRuleFile(t, dir, "good.yaml", `
rules:
  - event_type: TASK_CREATED
    actions:
      notify: [CREATOR]
`)

	s, err := NewFileSource(dir, nil)
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}

	all, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("got %d rules, want the good file only", len(all))
	}
}

func TestFileSourceMissingPath(t *testing.T) {
	if _, err := NewFileSource(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("NewFileSource() = nil for a missing path")
	}
}

func TestFileSourceReload(t *testing.T) {
	dir := t.TempDir()
	path := writeRuleFile(t, dir, "rules.yaml", `
rules:
  - event_type: TASK_CREATED
    actions:
      notify: [ASSIGNEE]
`)

	s, err := NewFileSource(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	writeRuleFile(t, dir, "rules.yaml", `
rules:
  - event_type: TASK_CREATED
    actions:
      notify: [ASSIGNEE]
  - event_type: PROJECT_ARCHIVED
    actions:
      notify: [MANAGER]
`)
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	all, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("got %d rules after reload, want 2", len(all))
	}
}

func TestParseBundleValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "unknown event type",
			content: `
rules:
  - event_type: TASK_VANISHED
    actions:
      escalate: true
`,
		},
		{
			name: "unknown action key",
			content: `
rules:
  - event_type: TASK_CREATED
    actions:
      reboot: true
`,
		},
		{
			name: "empty actions",
			content: `
rules:
  - event_type: TASK_CREATED
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseBundle([]byte(tt.content)); err == nil {
				t.Error("ParseBundle() = nil, want error")
			}
		})
	}
}

func TestParseBundleDefaultsEnabled(t *testing.T) {
	rules, err := ParseBundle([]byte(`
rules:
  - event_type: TASK_CREATED
    actions:
      escalate: true
`))
	if err != nil {
		t.Fatalf("ParseBundle() error = %v", err)
	}
	if len(rules) != 1 || !rules[0].Enabled {
		t.Error("rules default to enabled")
	}
}
