// Package services defines shared utilities consumed by the archiving engine
// and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp archive job IDs, step names, and measurement
//     numbers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent report severities (warning vs error).
//
// Use these helpers when wiring new archive steps so operational behaviour
// (error handling, observability) stays uniform across the job.
package services
