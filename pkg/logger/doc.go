// Package logger builds configured log/slog loggers with JSON or text
// output, env-driven settings, and small attribute helpers shared across the
// service.
package logger
