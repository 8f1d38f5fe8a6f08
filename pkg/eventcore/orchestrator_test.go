package eventcore_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventcore/pkg/eventcore"
	"github.com/randalmurphal/eventcore/pkg/eventcore/audit"
	"github.com/randalmurphal/eventcore/pkg/eventcore/condition"
)

// testAgent is a configurable Agent implementation for dispatch tests.
type testAgent struct {
	name     string
	disabled bool
	invalid  bool
	calls    atomic.Int64
	process  func(ctx context.Context, evt *eventcore.Envelope) error
}

func (a *testAgent) Name() string    { return a.name }
func (a *testAgent) Enabled() bool   { return !a.disabled }
func (a *testAgent) Validate() error {
	if a.invalid {
		return errors.New("misconfigured")
	}
	return nil
}

func (a *testAgent) ProcessEvent(ctx context.Context, evt *eventcore.Envelope) error {
	a.calls.Add(1)
	if a.process != nil {
		return a.process(ctx, evt)
	}
	return nil
}

func (a *testAgent) Health() map[string]any {
	return map[string]any{"status": "ok"}
}

func newTestOrchestrator(t *testing.T, sink audit.Sink, agents ...*testAgent) *eventcore.Orchestrator {
	t.Helper()
	orch := eventcore.NewOrchestrator(eventcore.OrchestratorConfig{Audit: sink})
	for _, a := range agents {
		require.NoError(t, orch.Registry().Register(a))
	}
	return orch
}

func routedEvent(eventType string, data map[string]any) *eventcore.Envelope {
	return &eventcore.Envelope{
		ID:        "evt-" + eventType,
		Type:      eventType,
		Source:    "accounting",
		Entity:    "t1",
		Timestamp: time.Now(),
		Data:      data,
		Status:    eventcore.StatusProcessing,
	}
}

func TestRouteEventParallelFailureIsolation(t *testing.T) {
	sink := audit.NewMemorySink()
	x := &testAgent{name: "x", process: func(context.Context, *eventcore.Envelope) error {
		return errors.New("x blew up")
	}}
	y := &testAgent{name: "y"}
	orch := newTestOrchestrator(t, sink, x, y)
	orch.DefineRoute("invoice_created", []string{"x", "y"})

	err := orch.RouteEvent(context.Background(), routedEvent("invoice_created", map[string]any{}))
	require.NoError(t, err)

	assert.Equal(t, int64(1), x.calls.Load())
	assert.Equal(t, int64(1), y.calls.Load(), "sibling must run despite x failing")

	byAgent := make(map[string]audit.ExecutionRecord)
	for _, rec := range sink.Executions() {
		byAgent[rec.AgentName] = rec
	}
	assert.Equal(t, "failed", byAgent["x"].Status)
	assert.Equal(t, "success", byAgent["y"].Status)
}

func TestRouteEventSequentialCriticalShortCircuit(t *testing.T) {
	a := &testAgent{name: "a", process: func(context.Context, *eventcore.Envelope) error {
		return eventcore.Critical(errors.New("must halt"))
	}}
	b := &testAgent{name: "b"}
	orch := newTestOrchestrator(t, nil, a, b)
	orch.DefineRoute("invoice_created", []string{"a", "b"}, eventcore.WithSequential())

	err := orch.RouteEvent(context.Background(), routedEvent("invoice_created", map[string]any{}))
	require.Error(t, err)
	assert.True(t, eventcore.IsCritical(err))

	assert.Equal(t, int64(1), a.calls.Load())
	assert.Zero(t, b.calls.Load(), "chain must halt before b")
}

func TestRouteEventSequentialNonCriticalContinues(t *testing.T) {
	a := &testAgent{name: "a", process: func(context.Context, *eventcore.Envelope) error {
		return errors.New("recoverable")
	}}
	b := &testAgent{name: "b"}
	orch := newTestOrchestrator(t, nil, a, b)
	orch.DefineRoute("invoice_created", []string{"a", "b"}, eventcore.WithSequential())

	err := orch.RouteEvent(context.Background(), routedEvent("invoice_created", map[string]any{}))
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.calls.Load())
	assert.Equal(t, int64(1), b.calls.Load())
}

func TestRouteEventSequentialOrder(t *testing.T) {
	var order []string
	mkAgent := func(name string) *testAgent {
		return &testAgent{name: name, process: func(context.Context, *eventcore.Envelope) error {
			order = append(order, name)
			return nil
		}}
	}
	a, b, c := mkAgent("a"), mkAgent("b"), mkAgent("c")
	orch := newTestOrchestrator(t, nil, a, b, c)
	orch.DefineRoute("invoice_created", []string{"a", "b", "c"}, eventcore.WithSequential())

	require.NoError(t, orch.RouteEvent(context.Background(), routedEvent("invoice_created", map[string]any{})))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestExecuteAgentTimeout(t *testing.T) {
	sink := audit.NewMemorySink()
	hung := &testAgent{name: "hung", process: func(ctx context.Context, _ *eventcore.Envelope) error {
		select {} // never settles, ignores cancellation
	}}
	orch := newTestOrchestrator(t, sink, hung)
	orch.DefineRoute("invoice_created", []string{"hung"}, eventcore.WithTimeout(50*time.Millisecond))

	start := time.Now()
	err := orch.RouteEvent(context.Background(), routedEvent("invoice_created", map[string]any{}))
	elapsed := time.Since(start)

	require.NoError(t, err, "parallel dispatch isolates the timeout")
	assert.Less(t, elapsed, time.Second, "must not wait for the hung agent")

	recs := sink.Executions()
	require.Len(t, recs, 1)
	assert.Equal(t, "failed", recs[0].Status)
	assert.Contains(t, recs[0].Error, "exceeded timeout")
}

func TestRouteEventConditionGating(t *testing.T) {
	agent := &testAgent{name: "large-invoice"}
	orch := newTestOrchestrator(t, nil, agent)
	orch.DefineRoute("invoice_created", []string{"large-invoice"},
		eventcore.WithCondition(condition.Comparison{
			Field: "data.amount",
			Op:    condition.OpGT,
			Value: 1000,
		}))

	require.NoError(t, orch.RouteEvent(context.Background(),
		routedEvent("invoice_created", map[string]any{"amount": 500})))
	assert.Zero(t, agent.calls.Load(), "amount=500 must not dispatch")

	require.NoError(t, orch.RouteEvent(context.Background(),
		routedEvent("invoice_created", map[string]any{"amount": 1500})))
	assert.Equal(t, int64(1), agent.calls.Load(), "amount=1500 must dispatch")

	// Condition misses are not routing failures.
	stats := orch.Stats()
	assert.Equal(t, int64(2), stats.TotalEvents)
	assert.Equal(t, int64(1), stats.RoutedEvents)
	assert.Zero(t, stats.FailedRouting)
}

func TestRouteEventUnroutedDrop(t *testing.T) {
	agent := &testAgent{name: "a"}
	orch := newTestOrchestrator(t, nil, agent)

	err := orch.RouteEvent(context.Background(), routedEvent("unknown_type", map[string]any{}))
	require.NoError(t, err)

	assert.Zero(t, agent.calls.Load())
	assert.Equal(t, int64(1), orch.Stats().FailedRouting)
}

func TestRouteEventAllAgentsDisabled(t *testing.T) {
	agent := &testAgent{name: "a", disabled: true}
	orch := newTestOrchestrator(t, nil, agent)
	orch.DefineRoute("invoice_created", []string{"a", "ghost"})

	err := orch.RouteEvent(context.Background(), routedEvent("invoice_created", map[string]any{}))
	require.NoError(t, err)

	assert.Zero(t, agent.calls.Load())

	// Resolving zero enabled agents is a routing failure, same as having
	// no rule at all.
	stats := orch.Stats()
	assert.Zero(t, stats.RoutedEvents)
	assert.Equal(t, int64(1), stats.FailedRouting)
}

func TestRouteEventPredicateCondition(t *testing.T) {
	agent := &testAgent{name: "a"}
	orch := newTestOrchestrator(t, nil, agent)
	orch.DefineRoute("invoice_created", []string{"a"},
		eventcore.WithCondition(condition.Predicate(func(doc map[string]any) bool {
			return doc["entity"] == "t1"
		})))

	require.NoError(t, orch.RouteEvent(context.Background(), routedEvent("invoice_created", map[string]any{})))
	assert.Equal(t, int64(1), agent.calls.Load())
}

func TestRouteEventRecoversAgentPanic(t *testing.T) {
	sink := audit.NewMemorySink()
	agent := &testAgent{name: "panicky", process: func(context.Context, *eventcore.Envelope) error {
		panic("boom")
	}}
	orch := newTestOrchestrator(t, sink, agent)
	orch.DefineRoute("invoice_created", []string{"panicky"})

	require.NoError(t, orch.RouteEvent(context.Background(), routedEvent("invoice_created", map[string]any{})))

	recs := sink.Executions()
	require.Len(t, recs, 1)
	assert.Equal(t, "failed", recs[0].Status)
	assert.Contains(t, recs[0].Error, "panic")
}

func TestRouteEventUpdatesAgentMetrics(t *testing.T) {
	ok := &testAgent{name: "ok"}
	bad := &testAgent{name: "bad", process: func(context.Context, *eventcore.Envelope) error {
		return errors.New("nope")
	}}
	orch := newTestOrchestrator(t, nil, ok, bad)
	orch.DefineRoute("invoice_created", []string{"ok", "bad"})

	for i := 0; i < 3; i++ {
		require.NoError(t, orch.RouteEvent(context.Background(),
			routedEvent("invoice_created", map[string]any{})))
	}

	stats := orch.Stats()
	assert.Equal(t, int64(3), stats.Agents["ok"].Successes)
	assert.Equal(t, int64(3), stats.Agents["bad"].Failures)
}

func TestRegistryRegisterInvalidAgentFails(t *testing.T) {
	orch := eventcore.NewOrchestrator(eventcore.OrchestratorConfig{})
	err := orch.Registry().Register(&testAgent{name: "broken", invalid: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "misconfigured")
}

func TestOrchestratorHealth(t *testing.T) {
	agent := &testAgent{name: "a"}
	orch := newTestOrchestrator(t, nil, agent)
	orch.DefineRoute("invoice_created", []string{"a"})

	health := orch.Health()
	assert.Equal(t, "healthy", health.Status)
	assert.Contains(t, health.Agents, "a")
	assert.Contains(t, health.Routes, "invoice_created")
}

func TestExecuteAgentAuditFailureIsSwallowed(t *testing.T) {
	sink := audit.NewMemorySink()
	require.NoError(t, sink.Close())

	agent := &testAgent{name: "a"}
	orch := newTestOrchestrator(t, sink, agent)
	orch.DefineRoute("invoice_created", []string{"a"})

	require.NoError(t, orch.RouteEvent(context.Background(),
		routedEvent("invoice_created", map[string]any{})))
	assert.Equal(t, int64(1), agent.calls.Load())
}
