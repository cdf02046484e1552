package engine

import (
	"context"
	"log/slog"
	"time"

	"tasksync-hq/tasksync/pkg/telemetry/metrics"
	"tasksync-hq/tasksync/pkg/workflow"
	"tasksync-hq/tasksync/pkg/workflow/store"
)

// Engine dispatches domain events against the enabled rule set. A
// dispatch evaluates every enabled rule for the event type and executes
// the actions of each rule that matches. Rule failures are isolated:
// one malformed or failing rule never prevents the others from running,
// and dispatch itself never reports an error to the emitting code path.
type Engine struct {
	rules    store.Source
	matcher  *Matcher
	executor *Executor
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// New creates an engine over the given rule source. The collector may
// be nil.
func New(rules store.Source, matcher *Matcher, executor *Executor, collector *metrics.Collector, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		rules:    rules,
		matcher:  matcher,
		executor: executor,
		metrics:  collector,
		logger:   logger.With("component", "workflow.engine"),
	}
}

// HandleEvent evaluates all enabled rules for the event type against
// the event context, executing the actions of every matching rule in
// rule id order. It never returns an error; failures are logged with
// rule identity and counted.
func (e *Engine) HandleEvent(ctx context.Context, eventType workflow.EventType, evCtx *workflow.Context) {
	start := time.Now()

	rules, err := e.rules.FindEnabled(ctx, eventType)
	if err != nil {
		e.logger.Error("rule lookup failed",
			"event_type", eventType,
			"error", err,
		)
		e.recordDispatch(eventType, 0, 0, 1, time.Since(start))
		return
	}

	evaluated, matched, failed := 0, 0, 0
	for _, rule := range rules {
		evaluated++

		ok, err := e.matcher.Matches(rule.Conditions, evCtx)
		if err != nil {
			e.logger.Error("workflow rule failed",
				"rule_id", rule.ID,
				"event_type", eventType,
				"error", err,
			)
			failed++
			continue
		}
		if !ok {
			continue
		}

		matched++
		if err := e.executor.Execute(ctx, rule.Actions, evCtx); err != nil {
			e.logger.Error("workflow rule failed",
				"rule_id", rule.ID,
				"event_type", eventType,
				"error", err,
			)
			failed++
			continue
		}

		e.logger.Info("workflow rule triggered",
			"rule_id", rule.ID,
			"event_type", eventType,
		)
	}

	e.recordDispatch(eventType, evaluated, matched, failed, time.Since(start))
}

func (e *Engine) recordDispatch(eventType workflow.EventType, evaluated, matched, failed int, d time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordDispatch(string(eventType), evaluated, matched, failed, d)
	}
}
