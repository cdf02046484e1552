// Package notify provides durable notification records with best-effort
// real-time push.
//
// Service.Create writes the record through a Store backend (memory or
// SQLite) and then hands it to a Sender for push delivery. The push is
// fire-and-forget: a failed push is logged and never fails the record
// creation. Actual delivery transport (websockets etc.) is external;
// NoopSender is the default.
package notify
