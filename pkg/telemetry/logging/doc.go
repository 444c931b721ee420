// Package logging builds the process-wide structured logger for Veil.
//
// The package wraps Go's standard log/slog: Setup constructs a slog.Logger
// from the telemetry configuration (level, format, source locations) and
// installs it as the process default. Components derive their own loggers
// with slog.Default().With("component", ...).
//
// Log output never contains raw tag values or protected health
// information; callers log policy names, versions, and counts only.
package logging
