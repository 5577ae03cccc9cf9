// Package logging assembles structured slog loggers and formatting helpers used
// across skyreel.
//
// It owns the console and JSON handlers, routes output to stdout plus the
// append-mode skyreel.log, and exposes context-aware helpers so pipeline code
// can tag log lines with run IDs, stages and triggers. Warnings and errors go
// through WarnWithContext/ErrorWithContext so every problem line carries an
// event_type, an error_hint and an impact.
package logging
