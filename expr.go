package surf

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/dsurf/surf/dom"
)

// The evaluate grammar, in the order forms are attempted:
//
//	literal      true | false | null | number | 'string' | "string"
//	path         ident(.ident)*
//	negation     !expr
//	equality     expr == expr | expr != expr
//	relation     expr > expr | expr < expr
//	call         Module.method(arg, ...)
//
// One parse pass produces a tagged AST; evaluation is a single switch over
// the tag. An expression that matches no form parses to nil and evaluates
// to Undefined, which bindings treat as "do not touch the DOM".

type exprKind int

const (
	exprLit exprKind = iota
	exprPath
	exprNot
	exprEq
	exprNe
	exprGt
	exprLt
	exprCall
)

type exprNode struct {
	kind exprKind

	lit      any       // exprLit
	path     []string  // exprPath
	operand  *exprNode // exprNot
	lhs, rhs *exprNode // comparisons
	module   string    // exprCall
	method   string    // exprCall
	args     []string  // exprCall, raw argument tokens
}

// evalEnv carries everything an expression or statement can touch.
type evalEnv struct {
	state   State
	elem    *dom.Element // the triggering element ("this"), may be nil
	event   *dom.Event   // the triggering event, may be nil
	modules map[string]Module
	log     *slog.Logger
}

// parseExpr parses src into an expression node, or nil when no grammar
// form matches.
func parseExpr(src string) *exprNode {
	s := strings.TrimSpace(src)
	if s == "" {
		return nil
	}
	if lit, ok := parseLiteral(s); ok {
		return &exprNode{kind: exprLit, lit: lit}
	}
	if path, ok := parsePath(s); ok {
		return &exprNode{kind: exprPath, path: path}
	}
	if strings.HasPrefix(s, "!") {
		if operand := parseExpr(s[1:]); operand != nil {
			return &exprNode{kind: exprNot, operand: operand}
		}
	}
	for _, op := range []struct {
		text string
		kind exprKind
	}{
		{"==", exprEq},
		{"!=", exprNe},
		{">", exprGt},
		{"<", exprLt},
	} {
		if i := indexTop(s, op.text); i > 0 {
			return &exprNode{
				kind: op.kind,
				lhs:  parseExpr(s[:i]),
				rhs:  parseExpr(s[i+len(op.text):]),
			}
		}
	}
	if module, method, args, ok := parseCall(s); ok {
		return &exprNode{kind: exprCall, module: module, method: method, args: args}
	}
	return nil
}

// evalExpr evaluates a parsed expression against env. A nil node (a failed
// parse) and a missing path both yield Undefined.
func evalExpr(n *exprNode, env evalEnv) any {
	if n == nil {
		return Undefined
	}
	switch n.kind {
	case exprLit:
		return n.lit
	case exprPath:
		return pathLookup(env.state, n.path)
	case exprNot:
		return !truthy(evalExpr(n.operand, env))
	case exprEq:
		return equalValues(evalExpr(n.lhs, env), evalExpr(n.rhs, env))
	case exprNe:
		return !equalValues(evalExpr(n.lhs, env), evalExpr(n.rhs, env))
	case exprGt, exprLt:
		a, aok := toNumber(evalExpr(n.lhs, env))
		b, bok := toNumber(evalExpr(n.rhs, env))
		if !aok || !bok {
			return false
		}
		if n.kind == exprGt {
			return a > b
		}
		return a < b
	case exprCall:
		return callModule(n.module, n.method, n.args, env)
	}
	return Undefined
}

// evaluate is parse-then-eval for one-shot callers like bindings.
func evaluate(src string, env evalEnv) any {
	return evalExpr(parseExpr(src), env)
}

// callModule invokes a registered module method. An unknown module or
// method is a warned no-op evaluating to Undefined, never a panic.
func callModule(module, method string, rawArgs []string, env evalEnv) any {
	mod, ok := env.modules[module]
	if !ok {
		env.log.Warn("surf: call to unregistered module", "module", module, "method", method)
		return Undefined
	}
	fn, ok := mod[method]
	if !ok {
		env.log.Warn("surf: module has no such method", "module", module, "method", method)
		return Undefined
	}
	return fn(resolveArgs(rawArgs, env)...)
}

// parseLiteral matches the literal forms: the three keywords, numbers, and
// full-span quoted strings.
func parseLiteral(s string) (any, bool) {
	switch s {
	case "true":
		return true, true
	case "false":
		return false, true
	case "null":
		return nil, true
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n, true
	}
	if str, ok := unquote(s); ok {
		return str, true
	}
	return nil, false
}

// parsePath matches a dotted identifier path: ident(.ident)*.
func parsePath(s string) ([]string, bool) {
	segs := strings.Split(s, ".")
	for _, seg := range segs {
		if !isIdent(seg) {
			return nil, false
		}
	}
	return segs, true
}

// parseCall matches Module.method(args). The argument list is split on
// depth-zero commas; tokens are resolved at call time.
func parseCall(s string) (module, method string, args []string, ok bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return "", "", nil, false
	}
	head := s[:open]
	dot := strings.IndexByte(head, '.')
	if dot <= 0 {
		return "", "", nil, false
	}
	module, method = head[:dot], head[dot+1:]
	if !isIdent(module) || !isIdent(method) {
		return "", "", nil, false
	}
	inner := s[open+1 : len(s)-1]
	if strings.TrimSpace(inner) == "" {
		return module, method, nil, true
	}
	for _, raw := range splitTop(inner, ',') {
		args = append(args, strings.TrimSpace(raw))
	}
	return module, method, args, true
}

// resolveArgs turns raw argument tokens into values. Supported forms:
// true/false, event/$event, this, quoted strings, bare numbers, this.prop
// lookups, and state paths. Empty or unresolvable tokens are dropped from
// the list rather than passed as Undefined.
func resolveArgs(tokens []string, env evalEnv) []any {
	var out []any
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		switch {
		case tok == "":
			continue
		case tok == "true":
			out = append(out, true)
		case tok == "false":
			out = append(out, false)
		case tok == "event" || tok == "$event":
			if env.event != nil {
				out = append(out, env.event)
			}
		case tok == "this":
			if env.elem != nil {
				out = append(out, env.elem)
			}
		default:
			if str, ok := unquote(tok); ok {
				out = append(out, str)
				continue
			}
			if n, err := strconv.ParseFloat(tok, 64); err == nil {
				out = append(out, n)
				continue
			}
			if prop, ok := strings.CutPrefix(tok, "this."); ok {
				if v, ok := elementProp(env.elem, prop); ok {
					out = append(out, v)
				}
				continue
			}
			if path, ok := parsePath(tok); ok {
				if v := pathLookup(env.state, path); !IsUndefined(v) {
					out = append(out, v)
				}
				continue
			}
			// Unresolved token: dropped.
		}
	}
	return out
}

// elementProp resolves a this.prop argument: the live control properties
// first, then a plain attribute lookup.
func elementProp(el *dom.Element, prop string) (any, bool) {
	if el == nil {
		return nil, false
	}
	switch prop {
	case "value":
		return el.Value(), true
	case "checked":
		return el.Checked(), true
	case "id":
		return el.ID(), true
	case "tag", "tagName":
		return el.Tag(), true
	}
	if v, ok := el.Attr(prop); ok {
		return v, true
	}
	return nil, false
}

// unquote strips a full-span matching pair of single or double quotes.
func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if (q != '\'' && q != '"') || s[len(s)-1] != q {
		return "", false
	}
	body := s[1 : len(s)-1]
	if strings.IndexByte(body, q) >= 0 {
		return "", false
	}
	return body, true
}

// isIdent reports whether s is a bare identifier: an initial letter, _ or
// $, then letters, digits, _ or $.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || c == '$' ||
			c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
			i > 0 && c >= '0' && c <= '9' {
			continue
		}
		return false
	}
	return true
}
