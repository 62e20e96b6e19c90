// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, and carries run-scoped loggers through context.Context
// so lanes, stores and adapters can log with the same correlation fields.
package logger
