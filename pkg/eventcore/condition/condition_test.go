package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/eventcore/pkg/eventcore/condition"
)

func doc(amount any) map[string]any {
	return map[string]any{
		"type":   "invoice_created",
		"entity": "t1",
		"data":   map[string]any{"amount": amount, "currency": "AUD"},
	}
}

func TestLookup(t *testing.T) {
	d := doc(1500)

	assert.Equal(t, 1500, condition.Lookup(d, "data.amount"))
	assert.Equal(t, "invoice_created", condition.Lookup(d, "type"))
	assert.Nil(t, condition.Lookup(d, "data.missing"))
	assert.Nil(t, condition.Lookup(d, "missing.deeply.nested"))
	assert.Nil(t, condition.Lookup(d, "data.amount.further"))
	assert.Nil(t, condition.Lookup(d, ""))
}

func TestComparisonOperators(t *testing.T) {
	tests := []struct {
		name string
		cond condition.Comparison
		doc  map[string]any
		want bool
	}{
		{"gt true", condition.Comparison{Field: "data.amount", Op: condition.OpGT, Value: 1000}, doc(1500), true},
		{"gt false", condition.Comparison{Field: "data.amount", Op: condition.OpGT, Value: 1000}, doc(500), false},
		{"gt equal is false", condition.Comparison{Field: "data.amount", Op: condition.OpGT, Value: 1000}, doc(1000), false},
		{"lt", condition.Comparison{Field: "data.amount", Op: condition.OpLT, Value: 1000}, doc(500), true},
		{"gte boundary", condition.Comparison{Field: "data.amount", Op: condition.OpGTE, Value: 1000}, doc(1000), true},
		{"lte boundary", condition.Comparison{Field: "data.amount", Op: condition.OpLTE, Value: 1000}, doc(1000), true},
		{"eq number", condition.Comparison{Field: "data.amount", Op: condition.OpEQ, Value: 1500}, doc(1500), true},
		{"eq float vs int", condition.Comparison{Field: "data.amount", Op: condition.OpEQ, Value: 1500}, doc(1500.0), true},
		{"eq string", condition.Comparison{Field: "data.currency", Op: condition.OpEQ, Value: "AUD"}, doc(1), true},
		{"ne", condition.Comparison{Field: "data.currency", Op: condition.OpNE, Value: "USD"}, doc(1), true},
		{"numeric string", condition.Comparison{Field: "data.amount", Op: condition.OpGT, Value: 1000}, doc("1500"), true},
		{"in hit", condition.Comparison{Field: "data.currency", Op: condition.OpIn, Value: []any{"AUD", "NZD"}}, doc(1), true},
		{"in miss", condition.Comparison{Field: "data.currency", Op: condition.OpIn, Value: []any{"USD"}}, doc(1), false},
		{"in string slice", condition.Comparison{Field: "data.currency", Op: condition.OpIn, Value: []string{"AUD"}}, doc(1), true},
		{"in non-slice rhs", condition.Comparison{Field: "data.currency", Op: condition.OpIn, Value: "AUD"}, doc(1), false},
		{"unknown op", condition.Comparison{Field: "data.amount", Op: condition.Op("~"), Value: 1}, doc(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Match(tt.doc))
		})
	}
}

// Missing fields resolve to nil; ordered comparisons against nil must be
// false rather than errors, while equality still distinguishes nil.
func TestComparisonMissingField(t *testing.T) {
	tests := []struct {
		name string
		cond condition.Comparison
		want bool
	}{
		{"missing gt", condition.Comparison{Field: "data.missing", Op: condition.OpGT, Value: 1000}, false},
		{"missing lt", condition.Comparison{Field: "data.missing", Op: condition.OpLT, Value: 1000}, false},
		{"missing gte", condition.Comparison{Field: "data.missing", Op: condition.OpGTE, Value: 0}, false},
		{"missing lte", condition.Comparison{Field: "data.missing", Op: condition.OpLTE, Value: 0}, false},
		{"missing eq nil", condition.Comparison{Field: "data.missing", Op: condition.OpEQ, Value: nil}, true},
		{"missing eq value", condition.Comparison{Field: "data.missing", Op: condition.OpEQ, Value: 1}, false},
		{"missing ne value", condition.Comparison{Field: "data.missing", Op: condition.OpNE, Value: 1}, true},
		{"missing in", condition.Comparison{Field: "data.missing", Op: condition.OpIn, Value: []any{1, 2}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Match(doc(1)))
		})
	}
}

func TestNonNumericOrderedComparison(t *testing.T) {
	c := condition.Comparison{Field: "data.amount", Op: condition.OpLT, Value: 1000}
	assert.False(t, c.Match(doc("not-a-number")), "non-numeric values never order-compare")
}

func TestPredicate(t *testing.T) {
	p := condition.Predicate(func(d map[string]any) bool {
		return d["entity"] == "t1"
	})
	assert.True(t, p.Match(doc(1)))

	p = func(d map[string]any) bool { return false }
	assert.False(t, p.Match(doc(1)))
}

func TestKnown(t *testing.T) {
	for _, op := range []condition.Op{condition.OpGT, condition.OpLT, condition.OpGTE, condition.OpLTE, condition.OpEQ, condition.OpNE, condition.OpIn} {
		assert.True(t, condition.Known(op))
	}
	assert.False(t, condition.Known(condition.Op("contains")))
}
