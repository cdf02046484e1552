// Package storage provides persistence backends for tasks.
//
// Two backends implement the Store interface:
//
//   - MemoryStore: in-memory, for tests and development
//   - SQLiteStore: durable single-file storage with WAL mode
//
// Both backends implement the breach and escalation transitions as
// atomic conditional updates: the flag is read and flipped in one
// storage operation conditioned on its prior value. The workflow engine
// and the SLA monitor race over these flags from independent triggering
// paths, and the conditional update is what bounds each deadline episode
// to at most one observable breach transition and one escalation.
package storage
