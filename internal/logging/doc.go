// Package logging assembles structured slog loggers used across barberq.
//
// It owns the console and JSON handlers, level parsing, output fan-out to
// stderr and the log file, and the standardized field keys (component, view,
// client_id, correlation_id, event_type, ...) so poll loops, the API client,
// and the CLI emit records with the same shape. A no-op logger is provided for
// tests and for wiring code that cannot fail.
//
// Long-running views log cycle failures through WarnWithContext so every
// warning carries a cause, an impact, and a hint.
package logging
