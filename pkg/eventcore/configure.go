package eventcore

import (
	"fmt"

	"github.com/randalmurphal/eventcore/pkg/eventcore/condition"
	"github.com/randalmurphal/eventcore/pkg/eventcore/config"
	"github.com/randalmurphal/eventcore/pkg/eventcore/schema"
)

// ApplyPipeline registers a declarative pipeline definition: source
// contracts go into the schema registry, routing rules into the
// orchestrator. Either target may be nil to apply only the other half.
func ApplyPipeline(p *config.Pipeline, schemas *schema.Registry, orch *Orchestrator) error {
	if schemas != nil {
		for _, s := range p.Schemas {
			err := schemas.Register(&schema.Source{
				Source:   s.Source,
				Types:    s.Types,
				Required: s.Required,
				Optional: s.Optional,
			})
			if err != nil {
				return fmt.Errorf("apply schema %s: %w", s.Source, err)
			}
		}
	}

	if orch != nil {
		for _, r := range p.Routes {
			opts, err := ruleOptions(r)
			if err != nil {
				return fmt.Errorf("apply route %s: %w", r.EventType, err)
			}
			orch.DefineRoute(r.EventType, r.Agents, opts...)
		}
	}

	return nil
}

// ruleOptions translates a rule spec into rule options.
func ruleOptions(r config.RuleSpec) ([]RuleOption, error) {
	var opts []RuleOption

	if r.Parallel != nil && !*r.Parallel {
		opts = append(opts, WithSequential())
	}
	if timeout, err := r.ParsedTimeout(); err != nil {
		return nil, err
	} else if timeout > 0 {
		opts = append(opts, WithTimeout(timeout))
	}
	if r.Priority != "" {
		opts = append(opts, WithPriority(r.Priority))
	}
	if r.Condition != nil {
		op := condition.Op(r.Condition.Operator)
		if !condition.Known(op) {
			return nil, fmt.Errorf("unknown condition operator: %s", r.Condition.Operator)
		}
		opts = append(opts, WithCondition(condition.Comparison{
			Field: r.Condition.Field,
			Op:    op,
			Value: r.Condition.Value,
		}))
	}

	return opts, nil
}
