// Package schema defines per-source structural contracts for incoming
// events. A contract enumerates the event types a source may emit and the
// required and optional payload fields. Contracts are selected by exact
// match on the event's source, falling back to a minimal generic contract.
package schema

import (
	"fmt"
	"strings"
	"sync"
)

// ValidationError indicates a raw event failed its source contract.
// It is the only error surfaced synchronously to the ingest caller.
type ValidationError struct {
	Source  string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on %s (source %s): %s", e.Field, e.Source, e.Message)
	}
	return fmt.Sprintf("validation error (source %s): %s", e.Source, e.Message)
}

// Source is the structural contract for one producer family.
type Source struct {
	// Source is the producer tag the contract applies to.
	Source string

	// Types enumerates allowed event types. Empty means any type.
	Types []string

	// Required lists payload fields that must be present and non-empty.
	Required []string

	// Optional lists known payload fields. Informational only; unknown
	// fields are not rejected.
	Optional []string
}

// allowsType reports whether the contract permits the given event type.
func (s *Source) allowsType(eventType string) bool {
	if len(s.Types) == 0 {
		return true
	}
	for _, t := range s.Types {
		if t == eventType {
			return true
		}
	}
	return false
}

// Validate checks an event type and payload against the contract.
func (s *Source) Validate(eventType string, data map[string]any) error {
	if !s.allowsType(eventType) {
		return &ValidationError{
			Source:  s.Source,
			Field:   "type",
			Message: fmt.Sprintf("type %q not allowed (expected one of: %s)", eventType, strings.Join(s.Types, ", ")),
		}
	}

	for _, field := range s.Required {
		v, ok := data[field]
		if !ok || v == nil {
			return &ValidationError{
				Source:  s.Source,
				Field:   "data." + field,
				Message: "required field missing",
			}
		}
		if str, isStr := v.(string); isStr && str == "" {
			return &ValidationError{
				Source:  s.Source,
				Field:   "data." + field,
				Message: "required field empty",
			}
		}
	}

	return nil
}

// Registry holds source contracts keyed by source tag.
type Registry struct {
	mu       sync.RWMutex
	bySource map[string]*Source
	fallback *Source
}

// NewRegistry creates an empty registry. Sources with no registered
// contract validate against a minimal generic contract that accepts any
// type and requires no payload fields.
func NewRegistry() *Registry {
	return &Registry{
		bySource: make(map[string]*Source),
		fallback: &Source{Source: "generic"},
	}
}

// Register adds a contract. Re-registering a source replaces its contract.
func (r *Registry) Register(s *Source) error {
	if s.Source == "" {
		return fmt.Errorf("source tag is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySource[s.Source] = s
	return nil
}

// ForSource returns the contract for a source, or the generic fallback.
func (r *Registry) ForSource(source string) *Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.bySource[source]; ok {
		return s
	}
	return r.fallback
}

// Has reports whether an exact contract exists for the source.
func (r *Registry) Has(source string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySource[source]
	return ok
}

// Sources returns all registered source tags.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]string, 0, len(r.bySource))
	for s := range r.bySource {
		sources = append(sources, s)
	}
	return sources
}
