package eventcore

import (
	"time"

	"github.com/randalmurphal/eventcore/pkg/eventcore/condition"
)

// Default routing-rule settings.
const (
	DefaultRuleTimeout  = 30 * time.Second
	DefaultRulePriority = "normal"
)

// RoutingRule maps an event type to the agents that must run, and how.
type RoutingRule struct {
	// EventType is the rule key.
	EventType string

	// Agents is the ordered list of agent names to invoke.
	Agents []string

	// Parallel dispatches all agents concurrently when true (the
	// default); otherwise agents run strictly in list order.
	Parallel bool

	// Condition optionally gates dispatch. A false match means the event
	// is skipped without being counted as a failure.
	Condition condition.Condition

	// Timeout bounds each individual agent invocation.
	Timeout time.Duration

	// Priority is informational only.
	Priority string
}

// RuleOption configures a routing rule.
type RuleOption func(*RoutingRule)

// WithSequential makes agents run in list order instead of concurrently.
func WithSequential() RuleOption {
	return func(r *RoutingRule) {
		r.Parallel = false
	}
}

// WithCondition gates the rule on a condition.
func WithCondition(c condition.Condition) RuleOption {
	return func(r *RoutingRule) {
		r.Condition = c
	}
}

// WithTimeout sets the per-agent execution budget.
func WithTimeout(d time.Duration) RuleOption {
	return func(r *RoutingRule) {
		r.Timeout = d
	}
}

// WithPriority sets the informational priority tag.
func WithPriority(p string) RuleOption {
	return func(r *RoutingRule) {
		r.Priority = p
	}
}

// newRule builds a rule with defaults applied.
func newRule(eventType string, agents []string, opts ...RuleOption) *RoutingRule {
	rule := &RoutingRule{
		EventType: eventType,
		Agents:    agents,
		Parallel:  true,
		Timeout:   DefaultRuleTimeout,
		Priority:  DefaultRulePriority,
	}
	for _, opt := range opts {
		opt(rule)
	}
	if rule.Timeout <= 0 {
		rule.Timeout = DefaultRuleTimeout
	}
	return rule
}
