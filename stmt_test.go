package surf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseStatementKinds(t *testing.T) {
	tests := []struct {
		src  string
		kind stmtKind
	}{
		{"submit", stmtSubmit},
		{"reset", stmtReset},
		{"  submit  ", stmtSubmit},
		{"this.focus()", stmtThisCall},
		{"this.remove()", stmtThisCall},
		{"event.preventDefault()", stmtEventCall},
		{"$event.stopPropagation()", stmtEventCall},
		{"Cart.add(this.value)", stmtModuleCall},
		{"open = !open", stmtAssign},
		{"count = count + 1", stmtAssign},
		{"user.name = 'Ada'", stmtAssign},
		{"", stmtInvalid},
		{"???", stmtInvalid},
		{"= 5", stmtInvalid},
		{"1bad = 2", stmtInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if st := parseStatement(tt.src); st.kind != tt.kind {
				t.Errorf("parseStatement(%q).kind = %v, want %v", tt.src, st.kind, tt.kind)
			}
		})
	}
}

func TestAssignIndex(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{"a = 1", 2},
		{"a == 1", -1},
		{"a != 1", -1},
		{"a >= 1", -1},
		{"a <= 1", -1},
		{"msg = 'a = b'", 4},
		{"obj = {k: v == 1}", 4},
		{"f(a = b)", -1},
		{"no assignment", -1},
	}
	for _, tt := range tests {
		if got := assignIndex(tt.src); got != tt.want {
			t.Errorf("assignIndex(%q) = %d, want %d", tt.src, got, tt.want)
		}
	}
}

func TestValueExprEval(t *testing.T) {
	state := State{
		"count": float64(4),
		"open":  true,
		"name":  "Ada",
		"copy":  "source",
	}
	env := testEnv(state)

	tests := []struct {
		path string
		rhs  string
		want any
	}{
		// Toggle is self-negation of the assignment target.
		{"open", "!open", false},
		{"missing", "!missing", true},

		{"open", "true", true},
		{"open", "false", false},

		// Arithmetic treats a missing source as 0.
		{"count", "count + 1", float64(5)},
		{"count", "count - 2", float64(2)},
		{"count", "missing + 3", float64(3)},

		// Clamps.
		{"count", "Math.min(count + 10, 9)", float64(9)},
		{"count", "Math.min(count + 1, 9)", float64(5)},
		{"count", "Math.max(count - 10, 0)", float64(0)},
		{"count", "Math.max(count - 1, 0)", float64(3)},

		{"name", "'Bea'", "Bea"},
		{"name", `"Bea"`, "Bea"},
		{"count", "7", float64(7)},
		{"count", "-2", float64(-2)},

		// The fallback grammar ends in bare property copy.
		{"name", "copy", "source"},
		{"open", "count > 3", true},
		{"gone", "missing", Undefined},
	}
	for _, tt := range tests {
		t.Run(tt.path+" = "+tt.rhs, func(t *testing.T) {
			path, ok := parsePath(tt.path)
			if !ok {
				t.Fatalf("bad test path %q", tt.path)
			}
			ve := parseValueExpr(tt.rhs, path)
			got, ok := ve.eval(path, env)
			if !ok {
				t.Fatalf("eval(%q) reported no value", tt.rhs)
			}
			if !equalValues(got, tt.want) {
				t.Errorf("eval(%q) = %v, want %v", tt.rhs, got, tt.want)
			}
		})
	}
}

func TestValueExprObjectLiteral(t *testing.T) {
	env := testEnv(State{})
	path := []string{"user"}

	ve := parseValueExpr(`{name: 'Ada', admin: true, score: 3}`, path)
	got, ok := ve.eval(path, env)
	if !ok {
		t.Fatal("object literal eval reported no value")
	}
	want := map[string]any{"name": "Ada", "admin": true, "score": float64(3)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("object literal (-want +got):\n%s", diff)
	}

	// A malformed literal yields no change rather than a partial write.
	bad := parseValueExpr(`{name: 'Ada'`, path)
	if bad.kind == valObject {
		t.Fatal("unterminated literal should fall through to the expression grammar")
	}
	broken := parseValueExpr(`{name: }`, path)
	if _, ok := broken.eval(path, env); ok {
		t.Error("malformed object literal reported a value")
	}
}

func TestNestedPartial(t *testing.T) {
	state := State{
		"user": map[string]any{"name": "Ada", "role": "admin"},
	}

	got := nestedPartial(state, []string{"user", "name"}, "Bea")
	want := State{"user": map[string]any{"name": "Bea", "role": "admin"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sibling keys not preserved (-want +got):\n%s", diff)
	}

	// Intermediate objects are created when absent.
	got = nestedPartial(State{}, []string{"a", "b", "c"}, float64(1))
	want = State{"a": map[string]any{"b": map[string]any{"c": float64(1)}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("deep path (-want +got):\n%s", diff)
	}
}

func TestNormalizeObjectLiteral(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{`{a: 1}`, `{"a": 1}`},
		{`{a: 'x', b: true}`, `{"a": "x", "b": true}`},
		{`{"a": 1}`, `{"a": 1}`},
	}
	for _, tt := range tests {
		if got := normalizeObjectLiteral(tt.src); got != tt.want {
			t.Errorf("normalizeObjectLiteral(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}
