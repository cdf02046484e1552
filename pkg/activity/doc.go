// Package activity is the append-only audit sink for task mutations.
// Both workflow-triggered and monitor-triggered changes record entries
// here, attributing the action to a responsible actor.
package activity
