// Package condition evaluates routing-rule gates against event documents.
//
// A condition is either a declarative Comparison (dotted field path,
// operator, literal value) or an arbitrary Predicate function. Field paths
// resolve through nested maps; a missing intermediate key resolves to nil,
// and ordered comparisons against nil are false rather than errors.
package condition

// Condition gates a routing rule. Match reports whether the rule should
// dispatch for the given event document.
type Condition interface {
	Match(doc map[string]any) bool
}

// Op is a comparison operator.
type Op string

const (
	OpGT  Op = ">"
	OpLT  Op = "<"
	OpGTE Op = ">="
	OpLTE Op = "<="
	OpEQ  Op = "=="
	OpNE  Op = "!="
	// OpIn tests membership; the comparison value must be a slice.
	OpIn Op = "in"
)

// knownOps lists every supported operator.
var knownOps = map[Op]bool{
	OpGT: true, OpLT: true, OpGTE: true, OpLTE: true,
	OpEQ: true, OpNE: true, OpIn: true,
}

// Known reports whether op is a supported operator.
func Known(op Op) bool {
	return knownOps[op]
}

// Comparison is a declarative condition: resolve Field in the event
// document and compare against Value using Op.
type Comparison struct {
	Field string
	Op    Op
	Value any
}

// Match implements Condition.
func (c Comparison) Match(doc map[string]any) bool {
	left := Lookup(doc, c.Field)
	return compare(left, c.Op, c.Value)
}

// Predicate adapts a function to the Condition interface.
type Predicate func(doc map[string]any) bool

// Match implements Condition.
func (p Predicate) Match(doc map[string]any) bool {
	return p(doc)
}
