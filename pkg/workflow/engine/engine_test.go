package engine

import (
	"context"
	"testing"
	"time"

	"tasksync-hq/tasksync/pkg/activity"
	"tasksync-hq/tasksync/pkg/task"
	"tasksync-hq/tasksync/pkg/task/storage"
	"tasksync-hq/tasksync/pkg/workflow"
	"tasksync-hq/tasksync/pkg/workflow/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *storage.MemoryStore, *fakeNotifier) {
	t.Helper()
	rules := store.NewMemoryStore()
	tasks := storage.NewMemoryStore()
	notifier := &fakeNotifier{}
	exec := NewExecutor(tasks, notifier, activity.NewMemoryRecorder(), nil, nil, nil)
	exec.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	eng := New(rules, NewMatcher(nil), exec, nil, nil)
	return eng, rules, tasks, notifier
}

func mustCreateRule(t *testing.T, rules *store.MemoryStore, r *workflow.Rule) {
	t.Helper()
	if err := rules.Create(context.Background(), r); err != nil {
		t.Fatal(err)
	}
}

func TestEngineDispatchesMatchingRules(t *testing.T) {
	eng, rules, tasks, notifier := newTestEngine(t)
	ts := sampleTask()
	if err := tasks.Save(context.Background(), ts); err != nil {
		t.Fatal(err)
	}

	mustCreateRule(t, rules, &workflow.Rule{
		EventType:  workflow.EventTaskStatusChanged,
		Conditions: `{"status": "IN_PROGRESS"}`,
		Actions:    `{"notify": ["MANAGER"]}`,
		Enabled:    true,
	})
	mustCreateRule(t, rules, &workflow.Rule{
		EventType:  workflow.EventTaskStatusChanged,
		Conditions: `{"status": "DONE"}`,
		Actions:    `{"notify": ["CREATOR"]}`,
		Enabled:    true,
	})

	eng.HandleEvent(context.Background(), workflow.EventTaskStatusChanged, workflow.TaskStatusChanged(ts, task.StatusTodo))

	if len(notifier.created) != 1 {
		t.Fatalf("got %d notifications, want only the matching rule to fire", len(notifier.created))
	}
	if notifier.created[0].recipient.Username != "pm" {
		t.Errorf("recipient = %q, want manager", notifier.created[0].recipient.Username)
	}
}

func TestEngineIgnoresDisabledRules(t *testing.T) {
	eng, rules, _, notifier := newTestEngine(t)

	mustCreateRule(t, rules, &workflow.Rule{
		EventType: workflow.EventTaskCreated,
		Actions:   `{"notify": ["ASSIGNEE"]}`,
		Enabled:   false,
	})

	eng.HandleEvent(context.Background(), workflow.EventTaskCreated, workflow.TaskCreated(sampleTask()))

	if len(notifier.created) != 0 {
		t.Errorf("disabled rule fired %d notifications", len(notifier.created))
	}
}

func TestEngineIgnoresOtherEventTypes(t *testing.T) {
	eng, rules, _, notifier := newTestEngine(t)

	mustCreateRule(t, rules, &workflow.Rule{
		EventType: workflow.EventTaskAssigned,
		Actions:   `{"notify": ["ASSIGNEE"]}`,
		Enabled:   true,
	})

	eng.HandleEvent(context.Background(), workflow.EventTaskCreated, workflow.TaskCreated(sampleTask()))

	if len(notifier.created) != 0 {
		t.Errorf("rule for a different event fired %d notifications", len(notifier.created))
	}
}

func TestEngineRuleFailureIsolation(t *testing.T) {
	eng, rules, tasks, notifier := newTestEngine(t)
	ts := sampleTask()
	if err := tasks.Save(context.Background(), ts); err != nil {
		t.Fatal(err)
	}

	// Rule 1 has malformed conditions, rule 2 a malformed action
	// descriptor; rule 3 is healthy and must still run.
	mustCreateRule(t, rules, &workflow.Rule{
		EventType:  workflow.EventTaskCreated,
		Conditions: `{"status": `,
		Actions:    `{"notify": ["MANAGER"]}`,
		Enabled:    true,
	})
	mustCreateRule(t, rules, &workflow.Rule{
		EventType: workflow.EventTaskCreated,
		Actions:   `not json`,
		Enabled:   true,
	})
	mustCreateRule(t, rules, &workflow.Rule{
		EventType: workflow.EventTaskCreated,
		Actions:   `{"setPriority": "CRITICAL"}`,
		Enabled:   true,
	})

	eng.HandleEvent(context.Background(), workflow.EventTaskCreated, workflow.TaskCreated(ts))

	got, err := tasks.Get(context.Background(), ts.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Priority != task.PriorityCritical {
		t.Errorf("healthy rule did not run after failing siblings: priority = %q", got.Priority)
	}
	if len(notifier.created) != 0 {
		t.Errorf("malformed rule produced %d notifications", len(notifier.created))
	}
}

func TestEngineVacuousRuleMatchesEverything(t *testing.T) {
	eng, rules, tasks, _ := newTestEngine(t)
	ts := sampleTask()
	if err := tasks.Save(context.Background(), ts); err != nil {
		t.Fatal(err)
	}

	mustCreateRule(t, rules, &workflow.Rule{
		EventType: workflow.EventTaskUpdated,
		Actions:   `{"setPriority": "MEDIUM"}`,
		Enabled:   true,
	})

	eng.HandleEvent(context.Background(), workflow.EventTaskUpdated, workflow.TaskUpdated(ts))

	got, err := tasks.Get(context.Background(), ts.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Priority != task.PriorityMedium {
		t.Errorf("priority = %q, want rule with no conditions to fire", got.Priority)
	}
}

func TestEngineNoRulesIsNoop(t *testing.T) {
	eng, _, _, notifier := newTestEngine(t)

	// Must not panic or create anything.
	eng.HandleEvent(context.Background(), workflow.EventProjectArchived, workflow.ProjectArchived(&task.Project{ID: 1, Name: "Portal"}))

	if len(notifier.created) != 0 {
		t.Errorf("got %d notifications with no rules configured", len(notifier.created))
	}
}
