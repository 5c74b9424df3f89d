package surf

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// parseSeed evaluates a d-cell seed into its initial state. The seed is an
// object-literal body with or without outer braces:
//
//	count: 0, user: {name: 'Ada', tags: ['x', 'y']}, open: false
//
// The grammar covers exactly the subset seeds use: bare-identifier or
// quoted keys, single- or double-quoted strings, numbers, true/false/null,
// arrays, nested objects, and trailing commas. An empty seed yields an
// empty state. No dynamic code evaluation is involved.
func parseSeed(src string) (State, error) {
	p := &seedParser{src: src}
	p.skipSpace()
	if p.eof() {
		return State{}, nil
	}
	var (
		obj map[string]any
		err error
	)
	if p.peek() == '{' {
		obj, err = p.parseObject()
	} else {
		obj, err = p.parseBody(0)
	}
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected trailing text")
	}
	return State(obj), nil
}

type seedParser struct {
	src string
	pos int
}

func (p *seedParser) eof() bool  { return p.pos >= len(p.src) }
func (p *seedParser) peek() byte { return p.src[p.pos] }

func (p *seedParser) next() byte {
	b := p.src[p.pos]
	p.pos++
	return b
}

func (p *seedParser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
}

func (p *seedParser) errorf(format string, args ...any) error {
	return fmt.Errorf("surf: seed at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

// parseObject parses a braced object.
func (p *seedParser) parseObject() (map[string]any, error) {
	p.next() // consume '{'
	obj, err := p.parseBody('}')
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.eof() || p.peek() != '}' {
		return nil, p.errorf("expected '}'")
	}
	p.next()
	return obj, nil
}

// parseBody parses key: value pairs until the terminator byte (0 for end
// of input). The terminator itself is not consumed.
func (p *seedParser) parseBody(term byte) (map[string]any, error) {
	obj := make(map[string]any)
	for {
		p.skipSpace()
		if p.eof() || (term != 0 && p.peek() == term) {
			return obj, nil
		}
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.eof() || p.peek() != ':' {
			return nil, p.errorf("expected ':' after key %q", key)
		}
		p.next()
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		obj[key] = val
		p.skipSpace()
		if !p.eof() && p.peek() == ',' {
			p.next()
			continue
		}
		if p.eof() || (term != 0 && p.peek() == term) {
			return obj, nil
		}
		return nil, p.errorf("expected ',' after value for %q", key)
	}
}

func (p *seedParser) parseKey() (string, error) {
	if p.peek() == '\'' || p.peek() == '"' {
		return p.parseString()
	}
	start := p.pos
	for !p.eof() && isIdentChar(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("expected key")
	}
	return p.src[start:p.pos], nil
}

func (p *seedParser) parseValue() (any, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("expected value")
	}
	switch c := p.peek(); {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '\'' || c == '"':
		return p.parseString()
	case c == '-' || c >= '0' && c <= '9':
		return p.parseNumber()
	default:
		start := p.pos
		for !p.eof() && isIdentChar(p.peek()) {
			p.pos++
		}
		switch word := p.src[start:p.pos]; word {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		default:
			return nil, p.errorf("unexpected token %q", p.src[start:p.pos])
		}
	}
}

func (p *seedParser) parseArray() ([]any, error) {
	p.next() // consume '['
	var arr []any
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("expected ']'")
		}
		if p.peek() == ']' {
			p.next()
			if arr == nil {
				arr = []any{}
			}
			return arr, nil
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
		p.skipSpace()
		if !p.eof() && p.peek() == ',' {
			p.next()
		}
	}
}

func (p *seedParser) parseString() (string, error) {
	quote := p.next()
	var sb strings.Builder
	for !p.eof() {
		c := p.next()
		switch c {
		case quote:
			return sb.String(), nil
		case '\\':
			if p.eof() {
				return "", p.errorf("unterminated escape")
			}
			esc := p.next()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(esc)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *seedParser) parseNumber() (float64, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for !p.eof() {
		c := p.peek()
		if c >= '0' && c <= '9' || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			p.pos++
			continue
		}
		break
	}
	n, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, p.errorf("invalid number %q", p.src[start:p.pos])
	}
	return n, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' ||
		unicode.IsLetter(rune(c))
}
