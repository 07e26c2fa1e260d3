// Package logger provides structured logging functionality for the application.
//
// It configures a log/slog JSON handler from the server configuration and
// carries request-scoped loggers through context.Context so adapters, stores
// and services log with the trace attributes of the request that called them.
package logger
