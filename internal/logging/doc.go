// Package logging assembles the structured slog loggers used by the ftumix
// binaries.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and re-exports attribute constructors so the rest of the
// codebase never imports slog directly. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
