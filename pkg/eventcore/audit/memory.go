package audit

import (
	"context"
	"sync"
)

// MemorySink is an in-memory Sink. Suitable for testing and
// single-instance deployments that do not need durable audit records.
type MemorySink struct {
	mu         sync.RWMutex
	events     []EventRecord
	executions []ExecutionRecord
	closed     bool
}

// NewMemorySink creates a new in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// InsertEvent implements Sink.
func (s *MemorySink) InsertEvent(_ context.Context, rec EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.events = append(s.events, rec)
	return nil
}

// UpdateEvent implements Sink.
func (s *MemorySink) UpdateEvent(_ context.Context, eventID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	for i := range s.events {
		if s.events[i].EventID != eventID {
			continue
		}
		if v, ok := fields["status"].(string); ok {
			s.events[i].Status = v
		}
		if v, ok := fields["error"].(string); ok {
			s.events[i].Error = v
		}
	}
	return nil
}

// InsertExecution implements Sink.
func (s *MemorySink) InsertExecution(_ context.Context, rec ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.executions = append(s.executions, rec)
	return nil
}

// Events returns a snapshot of recorded event records.
func (s *MemorySink) Events() []EventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EventRecord, len(s.events))
	copy(out, s.events)
	return out
}

// Executions returns a snapshot of recorded execution records.
func (s *MemorySink) Executions() []ExecutionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExecutionRecord, len(s.executions))
	copy(out, s.executions)
	return out
}

// Close marks the sink closed. Subsequent writes fail with ErrStoreClosed.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
