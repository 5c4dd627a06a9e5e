// Package logging assembles structured slog loggers and formatting helpers used
// across the dialer client.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so backend calls and bulk
// operations automatically tag log lines with request and session IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the client.
package logging
