package eventcore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgentMetricsIncrementalMean(t *testing.T) {
	m := &AgentMetrics{}

	m.record(100*time.Millisecond, nil)
	m.record(200*time.Millisecond, nil)
	m.record(300*time.Millisecond, errors.New("boom"))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.Invocations)
	assert.Equal(t, int64(2), snap.Successes)
	assert.Equal(t, int64(1), snap.Failures)
	assert.InDelta(t, 200.0, snap.AvgLatencyMs, 0.001)
}

func TestAgentMetricsZeroValue(t *testing.T) {
	m := &AgentMetrics{}
	snap := m.Snapshot()
	assert.Zero(t, snap.Invocations)
	assert.Zero(t, snap.AvgLatencyMs)
}
