package surf

import (
	"strings"
	"testing"
)

func testEnv(state State) evalEnv {
	return evalEnv{state: state, modules: map[string]Module{}, log: quietLogger()}
}

func TestEvaluate(t *testing.T) {
	state := State{
		"count": float64(5),
		"name":  "Ada",
		"open":  true,
		"sel":   nil,
		"user":  map[string]any{"role": "admin", "score": float64(40)},
	}

	tests := []struct {
		expr string
		want any
	}{
		// Literals.
		{"true", true},
		{"false", false},
		{"null", nil},
		{"42", float64(42)},
		{"-3.5", -3.5},
		{"'hi'", "hi"},
		{`"hi"`, "hi"},

		// Paths.
		{"count", float64(5)},
		{"name", "Ada"},
		{"user.role", "admin"},
		{"user.score", float64(40)},
		{"missing", Undefined},
		{"user.missing", Undefined},
		{"name.deeper", Undefined},

		// Negation.
		{"!open", false},
		{"!missing", true},
		{"!!open", true},

		// Equality.
		{"count == 5", true},
		{"count == 6", false},
		{"count != 6", true},
		{"name == 'Ada'", true},
		{"user.role == 'admin'", true},
		{"sel == null", true},
		{"missing == null", false},

		// Relations.
		{"count > 4", true},
		{"count > 5", false},
		{"count < 6", true},
		{"user.score > 100", false},
		{"missing > 1", false},

		// Unparseable.
		{"", Undefined},
		{"@#$", Undefined},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := evaluate(tt.expr, testEnv(state))
			if !equalValues(got, tt.want) {
				t.Errorf("evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	env := testEnv(State{"count": float64(5)})
	for i := 0; i < 3; i++ {
		if got := evaluate("count == 5", env); got != true {
			t.Fatalf("call %d: evaluate(count == 5) = %v, want true", i, got)
		}
	}
}

func TestEvaluateModuleCall(t *testing.T) {
	env := testEnv(State{"name": "ada"})
	env.modules["Format"] = Module{
		"upper": func(args ...any) any {
			if len(args) == 0 {
				return Undefined
			}
			return strings.ToUpper(args[0].(string))
		},
	}

	if got := evaluate("Format.upper(name)", env); got != "ADA" {
		t.Errorf("Format.upper(name) = %v, want ADA", got)
	}
	if got := evaluate("Format.upper('x')", env); got != "X" {
		t.Errorf("Format.upper('x') = %v, want X", got)
	}

	// Unknown module and unknown method are warned no-ops.
	if got := evaluate("Nope.thing(1)", env); !IsUndefined(got) {
		t.Errorf("Nope.thing(1) = %v, want Undefined", got)
	}
	if got := evaluate("Format.nope(1)", env); !IsUndefined(got) {
		t.Errorf("Format.nope(1) = %v, want Undefined", got)
	}
}

func TestResolveArgs(t *testing.T) {
	env := testEnv(State{"count": float64(2), "user": map[string]any{"id": "u1"}})

	got := resolveArgs([]string{"true", "'txt'", "3", "count", "user.id", "missing", ""}, env)
	want := []any{true, "txt", float64(3), float64(2), "u1"}
	if len(got) != len(want) {
		t.Fatalf("resolveArgs returned %d args, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		v    any
		want string
	}{
		{float64(1), "1"},
		{float64(1.5), "1.5"},
		{float64(0), "0"},
		{true, "true"},
		{nil, "null"},
		{"x", "x"},
		{[]any{float64(1), "a"}, `[1,"a"]`},
	}
	for _, tt := range tests {
		if got := stringify(tt.v); got != tt.want {
			t.Errorf("stringify(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{true, float64(1), "x", []any{}, map[string]any{}} {
		if !truthy(v) {
			t.Errorf("truthy(%v) = false, want true", v)
		}
	}
	for _, v := range []any{false, float64(0), "", nil, Undefined} {
		if truthy(v) {
			t.Errorf("truthy(%v) = true, want false", v)
		}
	}
}
