package condition

import (
	"fmt"
	"strconv"
	"strings"
)

// Lookup resolves a dotted field path against a nested document.
// Missing or non-map intermediate keys resolve to nil.
func Lookup(doc map[string]any, path string) any {
	if path == "" {
		return nil
	}

	var current any = doc
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[key]
		if !ok {
			return nil
		}
	}
	return current
}

// compare applies op to the resolved left value and the rule's right value.
// Equality uses string formatting so numeric types compare by value;
// ordered operators require both sides to be numeric and are false when
// either side is nil or non-numeric. Unknown operators never match.
func compare(left any, op Op, right any) bool {
	switch op {
	case OpEQ:
		return equals(left, right)
	case OpNE:
		return !equals(left, right)
	case OpGT:
		l, r, ok := bothFloats(left, right)
		return ok && l > r
	case OpLT:
		l, r, ok := bothFloats(left, right)
		return ok && l < r
	case OpGTE:
		l, r, ok := bothFloats(left, right)
		return ok && l >= r
	case OpLTE:
		l, r, ok := bothFloats(left, right)
		return ok && l <= r
	case OpIn:
		return contains(right, left)
	default:
		return false
	}
}

// equals compares two values by formatted representation. nil equals only
// nil.
func equals(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	return fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)
}

// bothFloats converts both sides for numeric comparison.
func bothFloats(left, right any) (float64, float64, bool) {
	l, lok := toFloat(left)
	r, rok := toFloat(right)
	return l, r, lok && rok
}

// toFloat converts a value to float64 for ordered comparison. Strings are
// parsed; values that cannot be converted report false.
func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// contains tests slice membership using equals semantics.
func contains(set any, needle any) bool {
	switch s := set.(type) {
	case []any:
		for _, item := range s {
			if equals(needle, item) {
				return true
			}
		}
	case []string:
		for _, item := range s {
			if equals(needle, item) {
				return true
			}
		}
	case []int:
		for _, item := range s {
			if equals(needle, item) {
				return true
			}
		}
	case []float64:
		for _, item := range s {
			if equals(needle, item) {
				return true
			}
		}
	}
	return false
}
