// Package task defines the work-item entities shared by the workflow
// engine, the SLA monitor, and their persistence backends: tasks,
// projects, users, and the status/priority enumerations.
//
// The package deliberately contains no behavior beyond small derivations
// (deadline computation, terminal-status checks). Mutation goes through
// the storage backends in pkg/task/storage, and lifecycle orchestration
// lives in the Service type (service.go), which is the synchronous
// in-request trigger path for workflow events.
package task
