// Package workflow defines the rule and event vocabulary of the
// automation engine: the closed event-type enumeration, the stored Rule
// record with its JSON-encoded condition and action payloads, the typed
// ActionSet those payloads parse into, and the per-event Context bundle
// that conditions match against.
//
// The rule language is intentionally a flat equality matcher over named
// context fields; there are no boolean operators, negation, or ranges.
// Payloads are parsed at dispatch time only, so malformed rule data is
// absorbed where it is used (see pkg/workflow/engine) rather than at
// save time.
package workflow
