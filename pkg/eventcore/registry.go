package eventcore

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// AgentRegistry holds named agent descriptors and their running metrics.
// The registry is owned by a single orchestrator instance; agents are
// registered at startup and resolved on every dispatch.
type AgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]*agentEntry
	logger *slog.Logger
}

type agentEntry struct {
	agent        Agent
	registeredAt time.Time
	metrics      *AgentMetrics
}

// NewAgentRegistry creates an empty registry. The logger may be nil.
func NewAgentRegistry(logger *slog.Logger) *AgentRegistry {
	return &AgentRegistry{
		agents: make(map[string]*agentEntry),
		logger: logger,
	}
}

// Register validates and stores an agent. Registration fails loudly when
// the agent reports itself invalid. Re-registration under the same name
// overwrites the previous descriptor with a warning, and resets the
// agent's metrics to zero.
func (r *AgentRegistry) Register(a Agent) error {
	if a.Name() == "" {
		return fmt.Errorf("register agent: name is required")
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("register agent %s: %w", a.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.Name()]; exists && r.logger != nil {
		r.logger.Warn("agent re-registered, overwriting",
			slog.String("agent", a.Name()))
	}

	r.agents[a.Name()] = &agentEntry{
		agent:        a,
		registeredAt: time.Now(),
		metrics:      &AgentMetrics{},
	}
	return nil
}

// Get returns the agent registered under name.
func (r *AgentRegistry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.agents[name]
	if !ok {
		return nil, false
	}
	return entry.agent, true
}

// Resolve maps rule agent names to registered, enabled agents. Unknown and
// disabled names are dropped.
func (r *AgentRegistry) Resolve(names []string) []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]Agent, 0, len(names))
	for _, name := range names {
		entry, ok := r.agents[name]
		if !ok || !entry.agent.Enabled() {
			continue
		}
		agents = append(agents, entry.agent)
	}
	return agents
}

// Metrics returns the running metrics for an agent.
func (r *AgentRegistry) Metrics(name string) (*AgentMetrics, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.agents[name]
	if !ok {
		return nil, false
	}
	return entry.metrics, true
}

// Names returns all registered agent names.
func (r *AgentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}

// Health returns each agent's self-reported health alongside its enabled
// state and metrics snapshot.
func (r *AgentRegistry) Health() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make(map[string]any, len(r.agents))
	for name, entry := range r.agents {
		health[name] = map[string]any{
			"enabled": entry.agent.Enabled(),
			"status":  entry.agent.Health(),
			"metrics": entry.metrics.Snapshot(),
		}
	}
	return health
}
