package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"tasksync-hq/tasksync/pkg/task"
)

type recordingSender struct {
	sent []string
	err  error
}

func (r *recordingSender) Send(ctx context.Context, n *Notification) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n.ID)
	return nil
}

func TestServiceCreate(t *testing.T) {
	store := NewMemoryStore()
	sender := &recordingSender{}
	svc := NewService(store, sender, nil)
	ctx := context.Background()

	recipient := &task.User{ID: 2, Username: "dev"}
	if err := svc.Create(ctx, recipient, TypeWorkflowTriggered, "Workflow triggered on task: x", 7, 42); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list, err := svc.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d notifications, want 1", len(list))
	}
	n := list[0]
	if n.ID == "" {
		t.Error("notification id not assigned")
	}
	if n.Type != TypeWorkflowTriggered || n.TaskID != 42 || n.ProjectID != 7 {
		t.Errorf("notification = %+v", n)
	}
	if n.Read {
		t.Error("new notification marked read")
	}

	if len(sender.sent) != 1 {
		t.Errorf("push sent %d times, want 1", len(sender.sent))
	}
}

func TestServiceCreateNilRecipient(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil)

	if err := svc.Create(context.Background(), nil, TypeSLABreached, "x", 0, 0); err == nil {
		t.Error("Create(nil recipient) = nil, want error")
	}
}

func TestServiceCreateSurvivesPushFailure(t *testing.T) {
	store := NewMemoryStore()
	sender := &recordingSender{err: errors.New("socket closed")}
	svc := NewService(store, sender, nil)
	ctx := context.Background()

	recipient := &task.User{ID: 2, Username: "dev"}
	if err := svc.Create(ctx, recipient, TypeSLAEscalated, "x", 7, 42); err != nil {
		t.Fatalf("Create() error = %v, push failure must not fail the record", err)
	}

	count, err := svc.UnreadCount(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("unread count = %d, want the record to exist", count)
	}
}

func TestServiceListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		n := &Notification{
			ID:          string(rune('a' + i)),
			RecipientID: 2,
			Type:        TypeWorkflowTriggered,
			Message:     "m",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Insert(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewService(store, nil, nil)
	list, err := svc.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d notifications, want 3", len(list))
	}
	if list[0].ID != "c" || list[2].ID != "a" {
		t.Errorf("order = %s, %s, %s, want newest first", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestMarkReadOwnership(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	owner := &task.User{ID: 2, Username: "dev"}
	if err := svc.Create(ctx, owner, TypeWorkflowTriggered, "m", 0, 0); err != nil {
		t.Fatal(err)
	}
	list, err := svc.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	id := list[0].ID

	// Another recipient cannot mark it read.
	if err := svc.MarkRead(ctx, id, 3); !errors.Is(err, ErrNotRecipient) {
		t.Errorf("MarkRead() by non-recipient = %v, want ErrNotRecipient", err)
	}
	if err := svc.MarkRead(ctx, "nope", 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkRead() unknown id = %v, want ErrNotFound", err)
	}

	if err := svc.MarkRead(ctx, id, 2); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	count, err := svc.UnreadCount(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("unread count = %d after mark read", count)
	}
}

func TestMarkAllRead(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	owner := &task.User{ID: 2, Username: "dev"}
	other := &task.User{ID: 3, Username: "reporter"}
	for i := 0; i < 3; i++ {
		if err := svc.Create(ctx, owner, TypeWorkflowTriggered, "m", 0, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.Create(ctx, other, TypeWorkflowTriggered, "m", 0, 0); err != nil {
		t.Fatal(err)
	}

	if err := svc.MarkAllRead(ctx, 2); err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}

	ownerCount, err := svc.UnreadCount(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	otherCount, err := svc.UnreadCount(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if ownerCount != 0 {
		t.Errorf("owner unread = %d, want 0", ownerCount)
	}
	if otherCount != 1 {
		t.Errorf("other recipient unread = %d, want untouched", otherCount)
	}
}
