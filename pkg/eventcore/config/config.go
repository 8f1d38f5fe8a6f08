package config

import (
	"fmt"
	"time"
)

// Pipeline is a declarative description of source contracts and routing
// rules.
type Pipeline struct {
	Schemas []SchemaSpec `yaml:"schemas" json:"schemas"`
	Routes  []RuleSpec   `yaml:"routes" json:"routes"`
}

// SchemaSpec declares one source contract.
type SchemaSpec struct {
	Source   string   `yaml:"source" json:"source"`
	Types    []string `yaml:"types" json:"types"`
	Required []string `yaml:"required" json:"required"`
	Optional []string `yaml:"optional" json:"optional"`
}

// RuleSpec declares one routing rule.
type RuleSpec struct {
	EventType string         `yaml:"event_type" json:"event_type"`
	Agents    []string       `yaml:"agents" json:"agents"`
	Parallel  *bool          `yaml:"parallel" json:"parallel"`
	Timeout   string         `yaml:"timeout" json:"timeout"`
	Priority  string         `yaml:"priority" json:"priority"`
	Condition *ConditionSpec `yaml:"condition" json:"condition"`
}

// ConditionSpec declares a declarative comparison gate.
type ConditionSpec struct {
	Field    string `yaml:"field" json:"field"`
	Operator string `yaml:"operator" json:"operator"`
	Value    any    `yaml:"value" json:"value"`
}

// Validate checks structural requirements the decoder cannot express.
func (p *Pipeline) Validate() error {
	for i, s := range p.Schemas {
		if s.Source == "" {
			return fmt.Errorf("schemas[%d]: source is required", i)
		}
	}

	for i, r := range p.Routes {
		if r.EventType == "" {
			return fmt.Errorf("routes[%d]: event_type is required", i)
		}
		if len(r.Agents) == 0 {
			return fmt.Errorf("routes[%d] (%s): at least one agent is required", i, r.EventType)
		}
		if _, err := r.ParsedTimeout(); err != nil {
			return fmt.Errorf("routes[%d] (%s): %w", i, r.EventType, err)
		}
		if r.Condition != nil {
			if r.Condition.Field == "" {
				return fmt.Errorf("routes[%d] (%s): condition field is required", i, r.EventType)
			}
			if r.Condition.Operator == "" {
				return fmt.Errorf("routes[%d] (%s): condition operator is required", i, r.EventType)
			}
		}
	}
	return nil
}

// ParsedTimeout returns the rule's timeout, or zero when unset.
func (r *RuleSpec) ParsedTimeout() (time.Duration, error) {
	if r.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parse timeout: %w", err)
	}
	return d, nil
}
