// Package observability provides production-grade observability features
// for eventcore: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds pipeline context to a logger.
// Returns a new logger with event_id, event_type, and source fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "evt-123", "invoice_created", "accounting")
//	enriched.Info("dispatching") // includes event_id, event_type, source
func EnrichLogger(logger *slog.Logger, eventID, eventType, source string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
		slog.String("source", source),
	)
}

// LogIngest logs a queued event.
func LogIngest(logger *slog.Logger, eventID, eventType, source string, position int) {
	if logger == nil {
		return
	}
	logger.Debug("event queued",
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
		slog.String("source", source),
		slog.Int("position", position),
	)
}

// LogValidationReject logs a synchronous validation rejection.
func LogValidationReject(logger *slog.Logger, eventType, source string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("event rejected",
		slog.String("event_type", eventType),
		slog.String("source", source),
		slog.String("error", err.Error()),
	)
}

// LogDispatch logs the start of routing for a dequeued event.
func LogDispatch(logger *slog.Logger, eventID, eventType string, agents int, parallel bool) {
	if logger == nil {
		return
	}
	logger.Debug("dispatching event",
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
		slog.Int("agents", agents),
		slog.Bool("parallel", parallel),
	)
}

// LogAgentComplete logs a successful agent invocation.
func LogAgentComplete(logger *slog.Logger, agent, eventID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("agent completed",
		slog.String("agent", agent),
		slog.String("event_id", eventID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogAgentError logs an agent failure.
func LogAgentError(logger *slog.Logger, agent, eventID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("agent failed",
		slog.String("agent", agent),
		slog.String("event_id", eventID),
		slog.String("error", err.Error()),
	)
}

// LogAuditError logs a best-effort audit write failure (non-fatal).
func LogAuditError(logger *slog.Logger, eventID, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("audit write failed",
		slog.String("event_id", eventID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
