// Package logger provides structured logging functionality for the application.
//
// It uses the standard library log/slog package to emit JSON logs with a
// configurable level. Request-scoped loggers travel in a context.Context via
// WithLogger and are recovered with FromContext or FromContextOrDefault.
package logger
