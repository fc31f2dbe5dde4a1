// Package logging assembles structured slog loggers used across the archiving
// engine and the CLI.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so archive steps automatically tag log
// lines with the job ID, step, and measurement number. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
