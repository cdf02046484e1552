// Package sla runs the periodic deadline sweep that detects overdue
// tasks and records SLA breaches.
//
// The monitor itself only performs the breach transition, writes the
// audit entry, and emits a TASK_SLA_BREACHED event; every reaction to a
// breach (notifying people, escalating, re-prioritizing) is expressed
// as a workflow rule on that event, so operators can change breach
// handling without a deploy.
package sla
