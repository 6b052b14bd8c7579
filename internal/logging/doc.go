// Package logging assembles structured slog loggers and formatting helpers used
// across quizgen.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so client and API code can tag
// log lines with job IDs, RPC IDs, and correlation IDs. A no-op logger is
// provided for tests and for wiring code that cannot fail.
package logging
