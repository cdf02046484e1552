package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventType identifies which lifecycle occurrence triggered a dispatch.
// The set is fixed and closed.
type EventType string

const (
	EventTaskCreated       EventType = "TASK_CREATED"
	EventTaskUpdated       EventType = "TASK_UPDATED"
	EventTaskAssigned      EventType = "TASK_ASSIGNED"
	EventTaskStatusChanged EventType = "TASK_STATUS_CHANGED"
	EventTaskSLABreached   EventType = "TASK_SLA_BREACHED"
	EventProjectArchived   EventType = "PROJECT_ARCHIVED"
)

// EventTypes returns all recognized event types.
func EventTypes() []EventType {
	return []EventType{
		EventTaskCreated,
		EventTaskUpdated,
		EventTaskAssigned,
		EventTaskStatusChanged,
		EventTaskSLABreached,
		EventProjectArchived,
	}
}

// Valid reports whether t is a recognized event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTaskCreated, EventTaskUpdated, EventTaskAssigned,
		EventTaskStatusChanged, EventTaskSLABreached, EventProjectArchived:
		return true
	}
	return false
}

// ParseEventType parses a string into an EventType, case-insensitively.
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type: %q", s)
	}
	return t, nil
}

// Rule is a stored workflow rule: an event type, a condition set, an
// action descriptor, and an enabled flag. Conditions and actions are
// persisted as JSON text and parsed at dispatch time, not at save time;
// a malformed payload is only discovered when a matching event occurs.
type Rule struct {
	ID        int64
	EventType EventType

	// Conditions is a JSON object mapping field names to expected scalar
	// values. Empty or blank means the rule always matches.
	Conditions string

	// Actions is a JSON action descriptor; see ActionSet.
	Actions string

	Enabled bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role tokens recognized by the notify action. Unrecognized tokens
// resolve to no recipient and are silently skipped.
const (
	RoleAssignee = "ASSIGNEE"
	RoleCreator  = "CREATOR"
	RoleManager  = "MANAGER"
)

// ActionSet is the parsed form of a rule's action descriptor. All fields
// are optional; absent fields are no-ops. It is a structured record, not
// free-form code.
type ActionSet struct {
	// Notify lists role tokens to resolve and notify, in order.
	Notify []string `json:"notify,omitempty"`

	// SetPriority changes the task's priority to the given token. The
	// token must be a member of the configured priority enumeration or
	// the action fails for that rule only.
	SetPriority string `json:"setPriority,omitempty"`

	// ResetSLA recomputes the task's deadline from now plus its
	// configured SLA hours and clears the breach and escalation flags.
	ResetSLA bool `json:"resetSla,omitempty"`

	// Escalate marks the task escalated and notifies the project
	// manager, exactly once per breach episode.
	Escalate bool `json:"escalate,omitempty"`
}

// Empty reports whether the action set contains no effects.
func (a *ActionSet) Empty() bool {
	return len(a.Notify) == 0 && a.SetPriority == "" && !a.ResetSLA && !a.Escalate
}

// ParseActions parses a JSON action descriptor. A blank payload yields an
// empty (no-op) action set.
func ParseActions(raw string) (*ActionSet, error) {
	var set ActionSet
	if strings.TrimSpace(raw) == "" {
		return &set, nil
	}
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, fmt.Errorf("malformed action descriptor: %w", err)
	}
	return &set, nil
}

// ParseConditions parses a JSON condition object into a field-to-value
// map. A blank payload yields an empty map (vacuous match).
func ParseConditions(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var conditions map[string]any
	if err := json.Unmarshal([]byte(raw), &conditions); err != nil {
		return nil, fmt.Errorf("malformed condition set: %w", err)
	}
	return conditions, nil
}
