// Package store provides the rule collection backends behind the
// workflow engine.
//
// Three implementations exist:
//
//   - SQLiteStore: durable rules with administrative CRUD
//   - MemoryStore: in-memory rules for tests
//   - FileSource: read-only rules from YAML bundles, with optional
//     fsnotify-driven hot reload
//
// All three serve the engine through the Source interface, which
// returns enabled rules for an event type in a fixed, repeatable order.
// The store is read-mostly: the engine never writes rules, so no
// locking beyond each backend's own is needed on the dispatch path.
package store
