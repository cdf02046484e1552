// Package logging constructs the process-wide structured logger from
// configuration. All components log through log/slog; this package only
// decides the handler (json or text), minimum level, and source
// annotation.
package logging
