// Package logging assembles structured slog loggers and formatting helpers
// used across mixdown services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so components emit data with the
// same shape. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
package logging
