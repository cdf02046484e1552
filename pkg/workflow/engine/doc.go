// Package engine evaluates workflow rules against domain events and
// executes the actions of matching rules.
//
// Dispatch is synchronous and failure-isolated: HandleEvent evaluates
// every enabled rule for the event type, one failing rule never blocks
// the rest, and no error ever propagates back to the code path that
// emitted the event. The matcher is a flat equality check over the
// event context's field map; the executor interprets the rule's action
// descriptor and applies each sub-action independently.
package engine
