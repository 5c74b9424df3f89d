package surf

import "strings"

// splitTop splits s on sep occurring at nesting depth zero. Depth is
// tracked across (), [] and {} and inside quoted strings, so a semicolon
// inside an object literal or a call argument list never splits a
// statement.
func splitTop(s string, sep byte) []string {
	var (
		out   []string
		depth int
		quote byte
		start int
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
		case sep:
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// indexTop returns the index of the first occurrence of op at depth zero,
// or -1. Quote handling matches splitTop.
func indexTop(s, op string) int {
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
		default:
			if depth == 0 && strings.HasPrefix(s[i:], op) {
				return i
			}
		}
	}
	return -1
}

// splitPair splits s on its first depth-zero occurrence of sep, reporting
// whether a separator was found.
func splitPair(s string, sep byte) (string, string, bool) {
	if i := indexTop(s, string(sep)); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return s, "", false
}
