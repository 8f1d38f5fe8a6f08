package eventcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/eventcore/pkg/eventcore/audit"
	"github.com/randalmurphal/eventcore/pkg/eventcore/observability"
)

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	// Registry resolves rule agent names. Required.
	Registry *AgentRegistry

	// Audit receives execution records (best-effort, optional).
	Audit audit.Sink

	// Logger for structured logging (optional).
	Logger *slog.Logger

	// Metrics records dispatch outcomes. Defaults to NoopMetrics.
	Metrics observability.MetricsRecorder

	// Spans traces event dispatch. Defaults to NoopSpanManager.
	Spans observability.SpanManager
}

// OrchestratorStats is a snapshot of routing counters.
type OrchestratorStats struct {
	TotalEvents   int64                           `json:"total_events"`
	RoutedEvents  int64                           `json:"routed_events"`
	FailedRouting int64                           `json:"failed_routing"`
	Agents        map[string]AgentMetricsSnapshot `json:"agents"`
}

// OrchestratorHealth is the orchestrator's health report. Agent failures
// are not folded into Status; only the ingestor's backlog and failure
// ratio reflect degradation.
type OrchestratorHealth struct {
	Status string            `json:"status"`
	Agents map[string]any    `json:"agents"`
	Stats  OrchestratorStats `json:"stats"`
	Routes []string          `json:"routes"`
}

// Orchestrator resolves routing rules for broadcast events and executes
// the selected agents under each rule's concurrency and timeout policy.
// It is intended to be constructed once at application start and shared
// by reference.
type Orchestrator struct {
	registry *AgentRegistry
	audit    audit.Sink
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager

	mu    sync.RWMutex
	rules map[string]*RoutingRule

	totalEvents   atomic.Int64
	routedEvents  atomic.Int64
	failedRouting atomic.Int64
}

// NewOrchestrator creates an orchestrator. A nil registry gets an empty
// one; metrics and spans default to no-ops.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Registry == nil {
		cfg.Registry = NewAgentRegistry(cfg.Logger)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	if cfg.Spans == nil {
		cfg.Spans = observability.NoopSpanManager{}
	}

	return &Orchestrator{
		registry: cfg.Registry,
		audit:    cfg.Audit,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		spans:    cfg.Spans,
		rules:    make(map[string]*RoutingRule),
	}
}

// Registry returns the agent registry backing this orchestrator.
func (o *Orchestrator) Registry() *AgentRegistry {
	return o.registry
}

// DefineRoute stores a routing rule for an event type. Defining a rule for
// an already-routed type replaces the previous rule.
func (o *Orchestrator) DefineRoute(eventType string, agents []string, opts ...RuleOption) {
	rule := newRule(eventType, agents, opts...)

	o.mu.Lock()
	o.rules[eventType] = rule
	o.mu.Unlock()
}

// Rule returns the routing rule for an event type.
func (o *Orchestrator) Rule(eventType string) (*RoutingRule, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	rule, ok := o.rules[eventType]
	return rule, ok
}

// RouteEvent dispatches one broadcast event according to its routing rule.
// Unrouteable events are dropped: logged, counted, never retried. The
// returned error is non-nil only when a sequential chain was halted by a
// critical agent failure; isolated agent failures are recorded through
// audit and metrics without failing the event.
func (o *Orchestrator) RouteEvent(ctx context.Context, evt *Envelope) error {
	o.totalEvents.Add(1)

	rule, ok := o.Rule(evt.Type)
	if !ok {
		o.failedRouting.Add(1)
		o.metrics.RecordDispatch(ctx, evt.Type, false)
		if o.logger != nil {
			o.logger.Warn("no routing rule for event type, dropping",
				slog.String("event_id", evt.ID),
				slog.String("event_type", evt.Type),
			)
		}
		return nil
	}

	if rule.Condition != nil && !rule.Condition.Match(evt.doc()) {
		o.metrics.RecordDispatch(ctx, evt.Type, false)
		if o.logger != nil {
			o.logger.Debug("routing condition not met, skipping",
				slog.String("event_id", evt.ID),
				slog.String("event_type", evt.Type),
			)
		}
		return nil
	}

	agents := o.registry.Resolve(rule.Agents)
	if len(agents) == 0 {
		o.failedRouting.Add(1)
		o.metrics.RecordDispatch(ctx, evt.Type, false)
		if o.logger != nil {
			o.logger.Warn("no enabled agents resolved for rule, dropping",
				slog.String("event_id", evt.ID),
				slog.String("event_type", evt.Type),
			)
		}
		return nil
	}

	o.routedEvents.Add(1)
	o.metrics.RecordDispatch(ctx, evt.Type, true)
	observability.LogDispatch(o.logger, evt.ID, evt.Type, len(agents), rule.Parallel)

	ctx, span := o.spans.StartEventSpan(ctx, evt.ID, evt.Type)
	var err error
	if rule.Parallel {
		o.dispatchParallel(ctx, agents, evt, rule.Timeout)
	} else {
		err = o.dispatchSequential(ctx, agents, evt, rule.Timeout)
	}
	o.spans.EndSpanWithError(span, err)
	return err
}

// dispatchParallel invokes every agent concurrently and waits for all
// outcomes. One agent's failure never cancels or blocks its siblings.
func (o *Orchestrator) dispatchParallel(ctx context.Context, agents []Agent, evt *Envelope, timeout time.Duration) {
	var wg sync.WaitGroup
	for _, ag := range agents {
		wg.Add(1)
		go func(ag Agent) {
			defer wg.Done()
			// Outcome already recorded; siblings are isolated.
			_ = o.executeAgent(ctx, ag, evt, timeout)
		}(ag)
	}
	wg.Wait()
}

// dispatchSequential invokes agents strictly in list order. The remaining
// chain halts only when the current agent's error is flagged critical.
func (o *Orchestrator) dispatchSequential(ctx context.Context, agents []Agent, evt *Envelope, timeout time.Duration) error {
	for _, ag := range agents {
		err := o.executeAgent(ctx, ag, evt, timeout)
		if err != nil && IsCritical(err) {
			if o.logger != nil {
				o.logger.Error("critical agent failure, halting chain",
					slog.String("agent", ag.Name()),
					slog.String("event_id", evt.ID),
					slog.String("error", err.Error()),
				)
			}
			return err
		}
	}
	return nil
}

// executeAgent races one agent invocation against the rule timeout. On
// expiry the agent's context is cancelled and the orchestrator stops
// waiting, but the invocation itself is not forcibly stopped; it may keep
// running in the background, unobserved. Wall-clock duration, an execution
// record, and the agent's running metrics are recorded for every outcome.
func (o *Orchestrator) executeAgent(ctx context.Context, ag Agent, evt *Envelope, timeout time.Duration) error {
	start := time.Now()

	actx, span := o.spans.StartAgentSpan(ctx, ag.Name())
	actx, cancel := context.WithTimeout(actx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- o.safeProcess(actx, ag, evt)
	}()

	var err error
	select {
	case err = <-done:
	case <-actx.Done():
		if errors.Is(actx.Err(), context.DeadlineExceeded) {
			err = &TimeoutError{Agent: ag.Name(), Timeout: timeout}
		} else {
			err = actx.Err()
		}
	}

	duration := time.Since(start)
	o.recordOutcome(ctx, ag, evt, duration, err)
	o.spans.EndSpanWithError(span, err)

	if err != nil {
		// Preserve the critical flag through the wrapper.
		return &AgentError{Agent: ag.Name(), EventID: evt.ID, Err: err}
	}
	return nil
}

// safeProcess invokes the agent, converting panics into errors.
func (o *Orchestrator) safeProcess(ctx context.Context, ag Agent, evt *Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panic: %v", r)
		}
	}()
	return ag.ProcessEvent(ctx, evt)
}

// recordOutcome writes the execution record (best-effort) and updates the
// agent's running metrics.
func (o *Orchestrator) recordOutcome(ctx context.Context, ag Agent, evt *Envelope, duration time.Duration, err error) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "failed"
		errMsg = err.Error()
		observability.LogAgentError(o.logger, ag.Name(), evt.ID, err)
	} else {
		observability.LogAgentComplete(o.logger, ag.Name(), evt.ID, float64(duration.Milliseconds()))
	}

	if o.audit != nil {
		rec := audit.ExecutionRecord{
			AgentName:  ag.Name(),
			EventID:    evt.ID,
			Status:     status,
			DurationMs: duration.Milliseconds(),
			Error:      errMsg,
			Timestamp:  time.Now(),
		}
		if auditErr := o.audit.InsertExecution(ctx, rec); auditErr != nil {
			observability.LogAuditError(o.logger, evt.ID, "insert_execution", auditErr)
		}
	}

	if m, ok := o.registry.Metrics(ag.Name()); ok {
		m.record(duration, err)
	}
	o.metrics.RecordAgentExecution(ctx, ag.Name(), duration, err)
}

// Stats returns a snapshot of routing counters and per-agent metrics.
func (o *Orchestrator) Stats() OrchestratorStats {
	agents := make(map[string]AgentMetricsSnapshot)
	for _, name := range o.registry.Names() {
		if m, ok := o.registry.Metrics(name); ok {
			agents[name] = m.Snapshot()
		}
	}

	return OrchestratorStats{
		TotalEvents:   o.totalEvents.Load(),
		RoutedEvents:  o.routedEvents.Load(),
		FailedRouting: o.failedRouting.Load(),
		Agents:        agents,
	}
}

// Health returns the orchestrator's health report.
func (o *Orchestrator) Health() OrchestratorHealth {
	o.mu.RLock()
	routes := make([]string, 0, len(o.rules))
	for t := range o.rules {
		routes = append(routes, t)
	}
	o.mu.RUnlock()

	return OrchestratorHealth{
		Status: "healthy",
		Agents: o.registry.Health(),
		Stats:  o.Stats(),
		Routes: routes,
	}
}

// Connect subscribes the orchestrator to an ingestor's broadcast so every
// drained event is routed. The returned subscription can be unsubscribed
// to detach.
func Connect(ing *Ingestor, orch *Orchestrator) *Subscription {
	return ing.SubscribeAll(func(ctx context.Context, _ string, evt *Envelope) error {
		return orch.RouteEvent(ctx, evt)
	})
}
