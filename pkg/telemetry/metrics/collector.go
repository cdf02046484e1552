package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tasksync-hq/tasksync/pkg/config"
)

// Collector owns all Prometheus metrics for the workflow engine and the
// SLA monitor. It provides a unified recording interface so the engine
// and monitor never touch prometheus types directly.
//
// When metrics are disabled in configuration, all recording methods are
// no-ops.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	rulesEvaluated *prometheus.CounterVec
	rulesMatched   *prometheus.CounterVec
	ruleFailures   *prometheus.CounterVec

	actionsExecuted *prometheus.CounterVec

	dispatchDuration *prometheus.HistogramVec

	notificationsCreated *prometheus.CounterVec

	slaBreaches    prometheus.Counter
	slaEscalations prometheus.Counter
	tickDuration   prometheus.Histogram
	tickErrors     prometheus.Counter
}

// Action execution outcomes recorded by RecordAction.
const (
	ActionOutcomeSuccess = "success"
	ActionOutcomeSkipped = "skipped"
	ActionOutcomeFailed  = "failed"
)

// NewCollector creates a metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a new
// registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "tasksync"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		rulesEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "rules_evaluated_total",
			Help:      "Total workflow rules evaluated, by event type.",
		}, []string{"event_type"}),

		rulesMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "rules_matched_total",
			Help:      "Total workflow rules whose conditions matched, by event type.",
		}, []string{"event_type"}),

		ruleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "rule_failures_total",
			Help:      "Total rules absorbed as failed (malformed payload or action error), by event type.",
		}, []string{"event_type"}),

		actionsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "actions_executed_total",
			Help:      "Total workflow sub-actions executed, by action and outcome.",
		}, []string{"action", "outcome"}),

		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of a full event dispatch, by event type.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"event_type"}),

		notificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_created_total",
			Help:      "Total notifications created by workflow actions, by type.",
		}, []string{"type"}),

		slaBreaches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "breaches_total",
			Help:      "Total SLA breach transitions detected by the monitor.",
		}),

		slaEscalations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "escalations_total",
			Help:      "Total one-time escalations performed.",
		}),

		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "tick_duration_seconds",
			Help:      "Duration of a full SLA monitor tick.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),

		tickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sla",
			Name:      "tick_entity_errors_total",
			Help:      "Total per-entity failures isolated inside monitor ticks.",
		}),
	}

	registry.MustRegister(
		c.rulesEvaluated,
		c.rulesMatched,
		c.ruleFailures,
		c.actionsExecuted,
		c.dispatchDuration,
		c.notificationsCreated,
		c.slaBreaches,
		c.slaEscalations,
		c.tickDuration,
		c.tickErrors,
	)

	return c
}

// RecordDispatch records counts and duration for one event dispatch.
func (c *Collector) RecordDispatch(eventType string, evaluated, matched, failed int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.rulesEvaluated.WithLabelValues(eventType).Add(float64(evaluated))
	c.rulesMatched.WithLabelValues(eventType).Add(float64(matched))
	if failed > 0 {
		c.ruleFailures.WithLabelValues(eventType).Add(float64(failed))
	}
	c.dispatchDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordAction records a single sub-action execution outcome.
func (c *Collector) RecordAction(action, outcome string) {
	if !c.config.Enabled {
		return
	}
	c.actionsExecuted.WithLabelValues(action, outcome).Inc()
}

// RecordNotification records a created notification.
func (c *Collector) RecordNotification(notificationType string) {
	if !c.config.Enabled {
		return
	}
	c.notificationsCreated.WithLabelValues(notificationType).Inc()
}

// RecordBreach records one SLA breach transition.
func (c *Collector) RecordBreach() {
	if !c.config.Enabled {
		return
	}
	c.slaBreaches.Inc()
}

// RecordEscalation records one escalation.
func (c *Collector) RecordEscalation() {
	if !c.config.Enabled {
		return
	}
	c.slaEscalations.Inc()
}

// RecordTick records the duration of one monitor tick and the number of
// per-entity failures isolated inside it.
func (c *Collector) RecordTick(duration time.Duration, entityErrors int) {
	if !c.config.Enabled {
		return
	}
	c.tickDuration.Observe(duration.Seconds())
	if entityErrors > 0 {
		c.tickErrors.Add(float64(entityErrors))
	}
}
