// Package audit defines the write-only audit collaborator for the event
// pipeline. The core records event lifecycle transitions and per-agent
// execution outcomes through a Sink; every write is best-effort, and sink
// failures never propagate into the ingestion or dispatch path.
package audit

import (
	"context"
	"errors"
	"time"
)

// ErrStoreClosed is returned when operating on a closed sink.
var ErrStoreClosed = errors.New("audit store is closed")

// EventRecord captures one event's lifecycle entry.
type EventRecord struct {
	EventID   string         `json:"event_id"`
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Entity    string         `json:"entity"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ExecutionRecord captures one agent invocation, success or failure.
type ExecutionRecord struct {
	AgentName  string    `json:"agent_name"`
	EventID    string    `json:"event_id"`
	Status     string    `json:"status"` // success | failed
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink receives audit writes from the pipeline. Implementations must be
// safe for concurrent use. The core never reads back through this
// interface; retention is the sink owner's concern.
type Sink interface {
	// InsertEvent appends an event lifecycle record.
	InsertEvent(ctx context.Context, rec EventRecord) error

	// UpdateEvent updates fields of a previously inserted event record.
	// Recognized fields: "status", "error".
	UpdateEvent(ctx context.Context, eventID string, fields map[string]any) error

	// InsertExecution appends a per-agent execution record.
	InsertExecution(ctx context.Context, rec ExecutionRecord) error
}
