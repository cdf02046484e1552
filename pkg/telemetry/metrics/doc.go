// Package metrics provides the Prometheus instrumentation for the
// workflow engine and the SLA monitor: rule evaluation and match
// counters, per-action execution outcomes, dispatch and tick duration
// histograms, and breach/escalation counters.
//
// Components record through the Collector facade rather than using
// prometheus types directly, and all recording becomes a no-op when
// metrics are disabled in configuration.
package metrics
