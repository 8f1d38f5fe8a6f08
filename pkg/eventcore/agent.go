package eventcore

import "context"

// Agent is a registered handler capable of reacting to routed events.
// This five-member contract is all the orchestrator ever calls; nothing
// else about an agent's internals is visible to the core.
type Agent interface {
	// Name is the agent's unique registry key.
	Name() string

	// Enabled reports whether the agent may receive events. Disabled
	// agents are silently skipped during routing.
	Enabled() bool

	// Validate checks the agent's configuration. It is called once at
	// registration; registration fails loudly on a non-nil error.
	Validate() error

	// ProcessEvent performs the agent's unit of work. The context is
	// cancelled when the rule timeout expires; cooperative agents should
	// honor it, but the orchestrator does not wait for them once the
	// budget is exhausted. Return Critical(err) to halt a sequential
	// chain.
	ProcessEvent(ctx context.Context, evt *Envelope) error

	// Health returns opaque status surfaced through the orchestrator's
	// health report.
	Health() map[string]any
}

// AgentFunc adapts a function to the Agent interface with a fixed name.
// Function agents are always enabled and always valid.
type AgentFunc struct {
	AgentName string
	Fn        func(ctx context.Context, evt *Envelope) error
}

// Name implements Agent.
func (a AgentFunc) Name() string { return a.AgentName }

// Enabled implements Agent.
func (a AgentFunc) Enabled() bool { return true }

// Validate implements Agent.
func (a AgentFunc) Validate() error { return nil }

// ProcessEvent implements Agent.
func (a AgentFunc) ProcessEvent(ctx context.Context, evt *Envelope) error {
	return a.Fn(ctx, evt)
}

// Health implements Agent.
func (a AgentFunc) Health() map[string]any {
	return map[string]any{"status": "ok"}
}
