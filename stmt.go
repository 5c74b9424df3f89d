package surf

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// The execute grammar, in the order forms are attempted against a trimmed
// statement:
//
//	command      submit | reset
//	this call    this.method(arg, ...)
//	event call   event.method(arg, ...) | $event.method(arg, ...)
//	module call  Module.method(arg, ...)
//	assignment   path = valueExpr
//
// Like expressions, statements parse once into a tagged variant and
// execute with a single switch. Malformed statements are warned no-ops.

type stmtKind int

const (
	stmtInvalid stmtKind = iota
	stmtSubmit
	stmtReset
	stmtThisCall
	stmtEventCall
	stmtModuleCall
	stmtAssign
)

type statement struct {
	kind stmtKind
	src  string // original text, for diagnostics

	module string   // stmtModuleCall
	method string   // the calls
	args   []string // raw argument tokens

	path  []string // stmtAssign target
	value valueExpr
}

// Value-expression forms for the right-hand side of an assignment, in the
// order they are attempted:
//
//	toggle   x = !x                        (self-negating; same path both sides)
//	bool     true | false
//	arith    path + N | path - N           (missing or non-numeric source is 0)
//	clamp    Math.min(path + N, M) | Math.max(path - N, M)
//	string   'text' | "text"
//	int      bare integer
//	object   { ... }                       (permissive normalization, then strict parse)
//	expr     the full evaluate grammar, ending in bare property copy
type valueKind int

const (
	valToggle valueKind = iota
	valBool
	valArith
	valClamp
	valString
	valInt
	valObject
	valExpr
)

type valueExpr struct {
	kind valueKind

	b       bool      // valBool
	n       float64   // valArith/valClamp delta (signed), valInt value
	bound   float64   // valClamp
	min     bool      // valClamp: true for Math.min
	s       string    // valString text, valObject source
	srcPath []string  // valArith/valClamp source path
	expr    *exprNode // valExpr; nil when even the evaluate grammar failed
}

var (
	arithRe = regexp.MustCompile(`^([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\s*([+-])\s*(\d+(?:\.\d+)?)$`)
	clampRe = regexp.MustCompile(`^Math\.(min|max)\(\s*([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\s*([+-])\s*(\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)\s*\)$`)
)

// parseStatement parses one statement of the execute grammar.
func parseStatement(src string) statement {
	s := strings.TrimSpace(src)
	st := statement{src: s}
	switch s {
	case "":
		return st
	case "submit":
		st.kind = stmtSubmit
		return st
	case "reset":
		st.kind = stmtReset
		return st
	}

	if recv, method, args, ok := parseCall(s); ok {
		st.method, st.args = method, args
		switch recv {
		case "this":
			st.kind = stmtThisCall
		case "event", "$event":
			st.kind = stmtEventCall
		default:
			st.kind = stmtModuleCall
			st.module = recv
		}
		return st
	}

	if i := assignIndex(s); i > 0 {
		lhs := strings.TrimSpace(s[:i])
		rhs := strings.TrimSpace(s[i+1:])
		if path, ok := parsePath(lhs); ok {
			st.kind = stmtAssign
			st.path = path
			st.value = parseValueExpr(rhs, path)
			return st
		}
	}
	return st
}

// assignIndex returns the index of the first depth-zero '=' that is a bare
// assignment operator (not part of ==, !=, >= or <=), or -1.
func assignIndex(s string) int {
	var (
		depth int
		quote byte
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth != 0 {
				continue
			}
			if i+1 < len(s) && s[i+1] == '=' {
				i++ // skip ==
				continue
			}
			if i > 0 && (s[i-1] == '!' || s[i-1] == '<' || s[i-1] == '>' || s[i-1] == '=') {
				continue
			}
			return i
		}
	}
	return -1
}

// parseValueExpr classifies the right-hand side of an assignment to path.
func parseValueExpr(rhs string, path []string) valueExpr {
	if after, ok := strings.CutPrefix(rhs, "!"); ok {
		if p, pok := parsePath(strings.TrimSpace(after)); pok && pathEqual(p, path) {
			return valueExpr{kind: valToggle}
		}
	}
	switch rhs {
	case "true":
		return valueExpr{kind: valBool, b: true}
	case "false":
		return valueExpr{kind: valBool, b: false}
	}
	if m := arithRe.FindStringSubmatch(rhs); m != nil {
		delta, _ := strconv.ParseFloat(m[3], 64)
		if m[2] == "-" {
			delta = -delta
		}
		src, _ := parsePath(m[1])
		return valueExpr{kind: valArith, srcPath: src, n: delta}
	}
	if m := clampRe.FindStringSubmatch(rhs); m != nil {
		delta, _ := strconv.ParseFloat(m[4], 64)
		if m[3] == "-" {
			delta = -delta
		}
		bound, _ := strconv.ParseFloat(m[5], 64)
		src, _ := parsePath(m[2])
		return valueExpr{kind: valClamp, srcPath: src, n: delta, bound: bound, min: m[1] == "min"}
	}
	if s, ok := unquote(rhs); ok {
		return valueExpr{kind: valString, s: s}
	}
	if n, err := strconv.ParseInt(rhs, 10, 64); err == nil {
		return valueExpr{kind: valInt, n: float64(n)}
	}
	if strings.HasPrefix(rhs, "{") && strings.HasSuffix(rhs, "}") {
		return valueExpr{kind: valObject, s: rhs}
	}
	return valueExpr{kind: valExpr, s: rhs, expr: parseExpr(rhs)}
}

func pathEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// evalValue computes the assignment's value against env. The second result
// is false when the statement should yield no change at all (a failed
// object-literal parse, or a value grammar miss that is not a property
// copy).
func (v valueExpr) eval(path []string, env evalEnv) (any, bool) {
	switch v.kind {
	case valToggle:
		return !truthy(pathLookup(env.state, path)), true
	case valBool:
		return v.b, true
	case valArith:
		return numberOrZero(pathLookup(env.state, v.srcPath)) + v.n, true
	case valClamp:
		n := numberOrZero(pathLookup(env.state, v.srcPath)) + v.n
		if v.min {
			return math.Min(n, v.bound), true
		}
		return math.Max(n, v.bound), true
	case valString:
		return v.s, true
	case valInt:
		return v.n, true
	case valObject:
		obj, err := parseObjectLiteral(v.s)
		if err != nil {
			env.log.Warn("surf: invalid object literal in assignment", "value", v.s, "err", err)
			return nil, false
		}
		return obj, true
	case valExpr:
		if v.expr == nil {
			env.log.Warn("surf: cannot parse assignment value", "value", v.s)
			return nil, false
		}
		// The evaluate grammar ends in bare property copy: a path
		// evaluates to its current value, including Undefined when
		// absent. Undefined propagates into the partial and deletes
		// the key, which is intentionally permissive.
		return evalExpr(v.expr, env), true
	}
	return nil, false
}

// parseObjectLiteral is the best-effort inline-object parser: single
// quotes and bare keys are normalized to JSON, then parsed strictly. Its
// supported subset is the contract; values with nested quotes or colons
// inside strings are out of scope.
func parseObjectLiteral(src string) (map[string]any, error) {
	normalized := normalizeObjectLiteral(src)
	var obj map[string]any
	if err := json.Unmarshal([]byte(normalized), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

var bareKeyRe = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][\w$]*)\s*:`)

func normalizeObjectLiteral(src string) string {
	s := strings.ReplaceAll(src, "'", `"`)
	return bareKeyRe.ReplaceAllString(s, `$1"$2":`)
}

// execute runs a parsed statement and returns the top-level partial to
// merge into the owning cell's state, or nil when the statement produced
// no state change (calls, commands, and failed value evaluation).
func (e *Engine) execute(st statement, env evalEnv) State {
	switch st.kind {
	case stmtInvalid:
		if st.src != "" {
			env.log.Warn("surf: cannot parse statement", "statement", st.src)
		}
		return nil

	case stmtSubmit:
		if env.elem == nil || env.elem.Form() == nil {
			env.log.Warn("surf: submit outside a form", "statement", st.src)
			return nil
		}
		env.elem.Submit()
		return nil

	case stmtReset:
		if env.elem == nil || env.elem.Form() == nil {
			env.log.Warn("surf: reset outside a form", "statement", st.src)
			return nil
		}
		// Deferred so an in-flight submission reads the field values
		// before they are cleared.
		el := env.elem
		e.nextTick(func() { el.Reset() })
		return nil

	case stmtThisCall:
		e.callThis(st, env)
		return nil

	case stmtEventCall:
		callEvent(st, env)
		return nil

	case stmtModuleCall:
		callModule(st.module, st.method, st.args, env)
		return nil

	case stmtAssign:
		v, ok := st.value.eval(st.path, env)
		if !ok {
			return nil
		}
		if len(st.path) == 1 {
			return State{st.path[0]: v}
		}
		return nestedPartial(env.state, st.path, v)
	}
	return nil
}

// callThis dispatches a this.method(...) call on the triggering element.
// An absent method is a warned no-op naming the method.
func (e *Engine) callThis(st statement, env evalEnv) {
	el := env.elem
	if el == nil {
		env.log.Warn("surf: this call without a triggering element", "method", st.method)
		return
	}
	switch st.method {
	case "reset":
		e.nextTick(func() { el.Reset() })
	case "submit":
		el.Submit()
	case "focus":
		el.Focus()
	case "blur":
		el.Blur()
	case "click":
		el.Click()
	case "remove":
		el.Remove()
	default:
		env.log.Warn("surf: this has no such method", "method", st.method)
	}
}

// callEvent dispatches an event.method(...) call on the triggering event.
func callEvent(st statement, env evalEnv) {
	ev := env.event
	if ev == nil {
		env.log.Warn("surf: event call without a triggering event", "method", st.method)
		return
	}
	switch st.method {
	case "preventDefault":
		ev.PreventDefault()
	case "stopPropagation":
		ev.StopPropagation()
	case "stopImmediatePropagation":
		ev.StopImmediatePropagation()
	default:
		env.log.Warn("surf: event has no such method", "method", st.method)
	}
}

// nestedPartial builds the top-level partial for a dotted assignment,
// merging with existing state at each level so sibling keys survive.
func nestedPartial(state State, path []string, v any) State {
	top := path[0]
	return State{top: mergeAt(asMap(state[top]), path[1:], v)}
}

func mergeAt(existing map[string]any, rest []string, v any) map[string]any {
	out := make(map[string]any, len(existing)+1)
	for k, val := range existing {
		out[k] = val
	}
	if len(rest) == 1 {
		out[rest[0]] = v
		return out
	}
	out[rest[0]] = mergeAt(asMap(existing[rest[0]]), rest[1:], v)
	return out
}

// asMap views a state value as a plain map, or nil when it is not one.
func asMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case State:
		return t
	}
	return nil
}
