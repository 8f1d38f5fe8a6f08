package eventcore

import (
	"sync"
	"time"
)

// AgentMetrics tracks one agent's running execution statistics. The
// average latency uses an incremental mean so memory stays O(1) per agent
// regardless of invocation count.
type AgentMetrics struct {
	mu           sync.Mutex
	invocations  int64
	successes    int64
	failures     int64
	avgLatencyMs float64
}

// record folds one execution outcome into the running statistics.
func (m *AgentMetrics) record(duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invocations++
	if err != nil {
		m.failures++
	} else {
		m.successes++
	}

	ms := float64(duration.Milliseconds())
	m.avgLatencyMs += (ms - m.avgLatencyMs) / float64(m.invocations)
}

// Snapshot returns a copy of the current statistics.
func (m *AgentMetrics) Snapshot() AgentMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return AgentMetricsSnapshot{
		Invocations:  m.invocations,
		Successes:    m.successes,
		Failures:     m.failures,
		AvgLatencyMs: m.avgLatencyMs,
	}
}

// AgentMetricsSnapshot is a point-in-time copy of an agent's statistics.
type AgentMetricsSnapshot struct {
	Invocations  int64   `json:"invocations"`
	Successes    int64   `json:"successes"`
	Failures     int64   `json:"failures"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}
