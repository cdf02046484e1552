package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"tasksync-hq/tasksync/pkg/workflow"
)

// Matcher evaluates a rule's condition payload against an event
// context. It is a pure equality matcher: every condition key must be
// present in the context and its canonical textual value must equal the
// condition's expected value. There is no OR, negation, or range
// operator.
type Matcher struct {
	logger *slog.Logger
}

// NewMatcher creates a condition matcher.
func NewMatcher(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{logger: logger.With("component", "workflow.matcher")}
}

// Matches reports whether the conditions hold for the context.
//
// An empty or blank condition payload always matches. A condition key
// absent from the context fails the match (fail closed). A payload that
// fails to parse is returned as a non-nil error and treated by callers
// as "does not match"; it is never propagated past the dispatch loop.
func (m *Matcher) Matches(conditions string, evCtx *workflow.Context) (bool, error) {
	parsed, err := workflow.ParseConditions(conditions)
	if err != nil {
		return false, err
	}

	for key, expected := range parsed {
		actual, ok := evCtx.Field(key)
		if !ok {
			return false, nil
		}
		want := canonical(expected)
		if want != actual {
			m.logger.Debug("condition did not match",
				"key", key,
				"expected", want,
				"actual", actual,
			)
			return false, nil
		}
	}

	return true, nil
}

// canonical converts a decoded JSON condition value to its canonical
// textual representation, so that differing concrete representations of
// the same logical value (enum vs. string, integral float vs. int)
// still compare equal.
func canonical(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
