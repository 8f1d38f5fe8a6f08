package eventcore

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks an envelope through its lifecycle.
// Transitions are monotonic: received -> processing -> processed | failed.
type Status string

const (
	// StatusReceived means the event has been validated and queued.
	StatusReceived Status = "received"
	// StatusProcessing means the event has been dequeued for dispatch.
	StatusProcessing Status = "processing"
	// StatusProcessed means the event's subscriber chain settled cleanly.
	StatusProcessed Status = "processed"
	// StatusFailed means a subscriber reported an error for the event.
	StatusFailed Status = "failed"
)

// rank orders statuses for monotonic advancement.
func (s Status) rank() int {
	switch s {
	case StatusReceived:
		return 0
	case StatusProcessing:
		return 1
	case StatusProcessed, StatusFailed:
		return 2
	default:
		return -1
	}
}

// RawEvent is the caller-facing shape handed to Ingestor.Ingest.
// ID and Timestamp are optional; missing values are assigned at ingest time.
type RawEvent struct {
	ID        string         `json:"id,omitempty"`
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Entity    string         `json:"entity"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
	Data      map[string]any `json:"data"`
}

// Envelope is the normalized record representing one occurrence to be
// routed. Envelopes are created by the Ingestor and mutated only by the
// drain loop; once processed or failed they are terminal.
type Envelope struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Entity    string         `json:"entity"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
	Status    Status         `json:"status"`
}

// newEnvelope normalizes a raw event, assigning an ID and timestamp when
// the caller did not supply them.
func newEnvelope(raw RawEvent, now time.Time) *Envelope {
	id := raw.ID
	if id == "" {
		id = uuid.New().String()
	}
	ts := raw.Timestamp
	if ts.IsZero() {
		ts = now
	}
	return &Envelope{
		ID:        id,
		Type:      raw.Type,
		Source:    raw.Source,
		Entity:    raw.Entity,
		Timestamp: ts,
		Data:      raw.Data,
		Status:    StatusReceived,
	}
}

// advance moves the envelope to next if that is a forward transition.
// Backward transitions are ignored, keeping the lifecycle monotonic.
func (e *Envelope) advance(next Status) {
	if next.rank() > e.Status.rank() {
		e.Status = next
	}
}

// doc exposes the envelope as a generic document for condition matching.
func (e *Envelope) doc() map[string]any {
	return map[string]any{
		"id":        e.ID,
		"type":      e.Type,
		"source":    e.Source,
		"entity":    e.Entity,
		"timestamp": e.Timestamp,
		"data":      e.Data,
	}
}
