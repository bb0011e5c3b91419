// Package logging defines the structured-logging interface used across the
// client. The default implementation wraps log/slog.
package logging

import "context"

// Logger writes leveled records with key/value attributes:
//
//	log.Info(ctx, "batch settled", "group_id", id, "batch", n)
type Logger interface {
	// Debug is for per-file detail such as status transitions.
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn marks a failure that the caller recovers from, like a single file
	// failing inside a batch.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that adds args to every record.
	With(args ...any) Logger
}
