// Package cli provides shared helpers for the tasksync command line:
// signal-aware contexts and typed command errors.
package cli
