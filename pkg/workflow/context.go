package workflow

import (
	"strconv"

	"tasksync-hq/tasksync/pkg/task"
)

// Context is the ephemeral bundle of entities relevant to one dispatched
// event. It is constructed fresh per dispatch by one of the per-event
// constructors below and discarded afterwards; it is never stored.
//
// Conditions match against the canonical string fields only, so the set
// of referenceable keys is closed by construction rather than being an
// arbitrary bag of values.
type Context struct {
	Event   EventType
	Task    *task.Task
	Project *task.Project

	fields map[string]string
}

// Field returns the canonical textual value for a condition key. The
// second return reports whether the key exists in this context.
func (c *Context) Field(key string) (string, bool) {
	v, ok := c.fields[key]
	return v, ok
}

// TaskCreated builds the context for a TASK_CREATED event.
func TaskCreated(t *task.Task) *Context {
	return taskContext(EventTaskCreated, t)
}

// TaskUpdated builds the context for a TASK_UPDATED event.
func TaskUpdated(t *task.Task) *Context {
	return taskContext(EventTaskUpdated, t)
}

// TaskAssigned builds the context for a TASK_ASSIGNED event.
func TaskAssigned(t *task.Task) *Context {
	return taskContext(EventTaskAssigned, t)
}

// TaskStatusChanged builds the context for a TASK_STATUS_CHANGED event.
// The previous status is exposed to conditions as "previousStatus".
func TaskStatusChanged(t *task.Task, previous task.Status) *Context {
	c := taskContext(EventTaskStatusChanged, t)
	c.fields["previousStatus"] = string(previous)
	return c
}

// TaskSLABreached builds the context for a TASK_SLA_BREACHED event.
func TaskSLABreached(t *task.Task) *Context {
	return taskContext(EventTaskSLABreached, t)
}

// ProjectArchived builds the context for a PROJECT_ARCHIVED event. It
// carries no task.
func ProjectArchived(p *task.Project) *Context {
	c := &Context{
		Event:   EventProjectArchived,
		Project: p,
		fields:  make(map[string]string),
	}
	if p != nil {
		addProjectFields(c.fields, p)
	}
	return c
}

func taskContext(event EventType, t *task.Task) *Context {
	c := &Context{
		Event:  event,
		Task:   t,
		fields: make(map[string]string),
	}
	if t == nil {
		return c
	}
	c.Project = t.Project

	c.fields["taskId"] = strconv.FormatInt(t.ID, 10)
	c.fields["title"] = t.Title
	c.fields["status"] = string(t.Status)
	c.fields["priority"] = string(t.Priority)
	c.fields["slaBreached"] = strconv.FormatBool(t.SLABreached)
	c.fields["escalated"] = strconv.FormatBool(t.Escalated)

	if t.Assignee != nil {
		c.fields["assignee"] = t.Assignee.Username
	}
	if t.CreatedBy != nil {
		c.fields["creator"] = t.CreatedBy.Username
	}
	if t.Project != nil {
		addProjectFields(c.fields, t.Project)
	}

	return c
}

func addProjectFields(fields map[string]string, p *task.Project) {
	fields["projectId"] = strconv.FormatInt(p.ID, 10)
	fields["project"] = p.Name
	fields["archived"] = strconv.FormatBool(p.Archived)
	if p.Manager != nil {
		fields["manager"] = p.Manager.Username
	}
}
