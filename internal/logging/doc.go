// Package logging assembles the structured slog loggers used across
// reelsmith components.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so pipeline code tags log lines
// with task IDs, stages, and correlation IDs consistently. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
