package eventcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelopeDefaults(t *testing.T) {
	now := time.Now()
	evt := newEnvelope(RawEvent{
		Type:   "invoice_created",
		Source: "accounting",
		Entity: "t1",
		Data:   map[string]any{"amount": 100},
	}, now)

	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, now, evt.Timestamp)
	assert.Equal(t, StatusReceived, evt.Status)
}

func TestNewEnvelopeCallerSupplied(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evt := newEnvelope(RawEvent{
		ID:        "evt-42",
		Type:      "invoice_created",
		Source:    "accounting",
		Entity:    "t1",
		Timestamp: ts,
		Data:      map[string]any{},
	}, time.Now())

	assert.Equal(t, "evt-42", evt.ID)
	assert.Equal(t, ts, evt.Timestamp)
}

func TestNewEnvelopeIDUniqueness(t *testing.T) {
	const n = 10000
	seen := make(map[string]bool, n)

	for i := 0; i < n; i++ {
		evt := newEnvelope(RawEvent{Type: "t", Source: "s", Entity: "e"}, time.Now())
		require.False(t, seen[evt.ID], "duplicate id %s", evt.ID)
		seen[evt.ID] = true
	}
}

func TestEnvelopeStatusMonotonic(t *testing.T) {
	evt := newEnvelope(RawEvent{Type: "t", Source: "s", Entity: "e"}, time.Now())

	evt.advance(StatusProcessing)
	assert.Equal(t, StatusProcessing, evt.Status)

	evt.advance(StatusProcessed)
	assert.Equal(t, StatusProcessed, evt.Status)

	// Terminal states never revert.
	evt.advance(StatusProcessing)
	assert.Equal(t, StatusProcessed, evt.Status)
	evt.advance(StatusReceived)
	assert.Equal(t, StatusProcessed, evt.Status)
}

func TestEnvelopeDoc(t *testing.T) {
	evt := newEnvelope(RawEvent{
		Type:   "invoice_created",
		Source: "accounting",
		Entity: "t1",
		Data:   map[string]any{"amount": 1500},
	}, time.Now())

	doc := evt.doc()
	assert.Equal(t, "invoice_created", doc["type"])
	data, ok := doc["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1500, data["amount"])
}
