// Package service implements the task lifecycle operations and the
// in-request trigger path: every successful mutation dispatches its
// domain event to the workflow engine synchronously, in the same call.
package service
