package surf

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

// undefined is the evaluator's "nothing matched" result, distinct from an
// explicit null so bindings can tell "leave the DOM alone" apart from a
// stored null value.
type undefined struct{}

// Undefined is the value an expression evaluates to when no grammar form
// matches or a path is absent. Bindings skip updates for Undefined;
// SetState deletes a key whose partial value is Undefined.
var Undefined = undefined{}

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// truthy applies the host language's truthiness rules to a state value:
// false, null, Undefined, 0, NaN and "" are falsy, everything else truthy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil, undefined:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// toNumber coerces a state value to a float64, reporting whether the
// coercion succeeded.
func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseFloat(t, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// numberOrZero coerces like toNumber but treats a missing or non-numeric
// source as 0, the contract for arithmetic value expressions.
func numberOrZero(v any) float64 {
	n, ok := toNumber(v)
	if !ok {
		return 0
	}
	return n
}

// stringify renders a state value the way text bindings display it:
// integral numbers without a decimal point, null as "null", objects and
// arrays as JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case undefined:
		return "undefined"
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// equalValues is the evaluator's == semantics: numeric operands compare by
// value regardless of concrete type, everything else compares structurally.
func equalValues(a, b any) bool {
	if IsUndefined(a) || IsUndefined(b) {
		return IsUndefined(a) && IsUndefined(b)
	}
	an, aok := numericValue(a)
	bn, bok := numericValue(b)
	if aok && bok {
		return an == bn
	}
	return reflect.DeepEqual(a, b)
}

// numericValue is toNumber restricted to actual numbers, so equalValues
// does not coerce strings or booleans the way arithmetic does.
func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	}
	return 0, false
}

// pathLookup walks a dotted path through nested state maps, returning
// Undefined when any step is absent or not an object.
func pathLookup(state State, path []string) any {
	var cur any = state
	for _, seg := range path {
		switch m := cur.(type) {
		case State:
			v, ok := m[seg]
			if !ok {
				return Undefined
			}
			cur = v
		case map[string]any:
			v, ok := m[seg]
			if !ok {
				return Undefined
			}
			cur = v
		default:
			return Undefined
		}
	}
	return cur
}

// cloneValue deep-copies the JSON-like subset state values are drawn from.
func cloneValue(v any) any {
	switch t := v.(type) {
	case State:
		out := make(State, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// cloneState deep-copies a state map.
func cloneState(s State) State {
	return cloneValue(s).(State)
}
