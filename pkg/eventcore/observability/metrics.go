package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordIngest records an accepted event with its source and type.
	RecordIngest(ctx context.Context, source, eventType string)

	// RecordDispatch records a routing decision for a dequeued event.
	RecordDispatch(ctx context.Context, eventType string, routed bool)

	// RecordAgentExecution records an agent invocation with its duration
	// and error status.
	RecordAgentExecution(ctx context.Context, agent string, duration time.Duration, err error)

	// RecordQueueDepth records the current queue backlog.
	RecordQueueDepth(ctx context.Context, depth int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	ingested     metric.Int64Counter
	dispatched   metric.Int64Counter
	agentRuns    metric.Int64Counter
	agentLatency metric.Float64Histogram
	agentErrors  metric.Int64Counter
	queueDepth   metric.Int64Gauge
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("eventcore")

	ingested, err := meter.Int64Counter("eventcore.events.ingested",
		metric.WithDescription("Number of events accepted at ingest"),
	)
	if err != nil {
		return nil, err
	}

	dispatched, err := meter.Int64Counter("eventcore.events.dispatched",
		metric.WithDescription("Number of routing decisions"),
	)
	if err != nil {
		return nil, err
	}

	agentRuns, err := meter.Int64Counter("eventcore.agent.executions",
		metric.WithDescription("Number of agent executions"),
	)
	if err != nil {
		return nil, err
	}

	agentLatency, err := meter.Float64Histogram("eventcore.agent.latency_ms",
		metric.WithDescription("Agent execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	agentErrors, err := meter.Int64Counter("eventcore.agent.errors",
		metric.WithDescription("Number of agent execution errors"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Gauge("eventcore.queue.depth",
		metric.WithDescription("Current queue backlog"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		ingested:     ingested,
		dispatched:   dispatched,
		agentRuns:    agentRuns,
		agentLatency: agentLatency,
		agentErrors:  agentErrors,
		queueDepth:   queueDepth,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordIngest records an accepted event.
func (m *otelMetrics) RecordIngest(ctx context.Context, source, eventType string) {
	m.ingested.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("event_type", eventType),
	))
}

// RecordDispatch records a routing decision.
func (m *otelMetrics) RecordDispatch(ctx context.Context, eventType string, routed bool) {
	m.dispatched.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Bool("routed", routed),
	))
}

// RecordAgentExecution records an agent invocation.
func (m *otelMetrics) RecordAgentExecution(ctx context.Context, agent string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("agent", agent),
	}

	m.agentRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.agentLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.agentErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordQueueDepth records the current backlog.
func (m *otelMetrics) RecordQueueDepth(ctx context.Context, depth int64) {
	m.queueDepth.Record(ctx, depth)
}
