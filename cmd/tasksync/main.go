// TaskSync is a workflow automation engine for work tracking.
//
// It persists tasks, projects, and workflow rules in SQLite, evaluates
// rules against task lifecycle events, and runs a periodic monitor that
// detects SLA deadline breaches.
//
// Usage:
//
//	# Start the engine with default configuration
//	tasksync run
//
//	# Start with a custom configuration file
//	tasksync run --config /path/to/config.yaml
//
//	# Validate a YAML rule bundle
//	tasksync lint --file rules.yaml
//
//	# Manage stored rules
//	tasksync rules list
//	tasksync rules disable 3
//
//	# Show version information
//	tasksync version
package main

func main() {
	Execute()
}
