package eventcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/eventcore/pkg/eventcore/schema"
)

// IsValidationError reports whether err is a synchronous ingest-time
// validation rejection.
func IsValidationError(err error) bool {
	var ve *schema.ValidationError
	return errors.As(err, &ve)
}

// RoutingError indicates an event could not be routed: no rule matched its
// type, or no enabled agent resolved. Routing errors are logged and counted,
// never surfaced to the original producer.
type RoutingError struct {
	EventID   string
	EventType string
	Reason    string
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing event %s (%s): %s", e.EventID, e.EventType, e.Reason)
}

// AgentError represents a single agent's failure while processing an event.
// One agent's failure never affects its parallel siblings.
type AgentError struct {
	Agent   string
	EventID string
	Err     error
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s failed on event %s: %v", e.Agent, e.EventID, e.Err)
}

// Unwrap returns the underlying error.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates an agent exhausted its rule timeout. The agent's
// invocation is not forcibly stopped; the orchestrator merely stops waiting.
type TimeoutError struct {
	Agent   string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent %s exceeded timeout of %s", e.Agent, e.Timeout)
}

// criticalError flags an agent failure that must halt a sequential chain.
type criticalError struct {
	err error
}

func (e *criticalError) Error() string {
	return fmt.Sprintf("critical: %v", e.err)
}

func (e *criticalError) Unwrap() error {
	return e.err
}

// Critical marks an error as chain-halting. A sequential dispatch stops at
// the first agent whose error is flagged critical; all other failures let
// the remaining chain continue.
func Critical(err error) error {
	if err == nil {
		return nil
	}
	return &criticalError{err: err}
}

// IsCritical reports whether err carries the critical flag.
func IsCritical(err error) bool {
	var ce *criticalError
	return errors.As(err, &ce)
}
