package store

import (
	"strings"
	"unicode"
)

// readKeywords lead statements that only read.
var readKeywords = map[string]struct{}{
	"SELECT":   {},
	"WITH":     {},
	"SHOW":     {},
	"DESCRIBE": {},
	"DESC":     {},
	"EXPLAIN":  {},
	"PRAGMA":   {},
	"VALUES":   {},
	"TABLE":    {},
}

// IsRead reports whether statement leads with a read keyword.
func IsRead(statement string) bool {
	_, ok := readKeywords[LeadingKeyword(statement)]
	return ok
}

// ReturnsRows reports whether statement is expected to produce a result set:
// reads, stored procedure calls, and writes with a top-level RETURNING clause.
func ReturnsRows(statement string) bool {
	if IsRead(statement) {
		return true
	}
	switch LeadingKeyword(statement) {
	case "":
		return false
	case "CALL":
		return true
	}
	return hasTopLevelKeyword(statement, "RETURNING")
}

// LeadingKeyword returns the first keyword of statement in upper case.
func LeadingKeyword(statement string) string {
	s := skipPreamble(statement)
	end := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '_'
	})
	if end == -1 {
		end = len(s)
	}
	return strings.ToUpper(s[:end])
}

// skipPreamble drops leading whitespace, "--", "#" and "/* */" comments, and "(".
func skipPreamble(s string) string {
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		switch {
		case strings.HasPrefix(s, "--"), strings.HasPrefix(s, "#"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
			} else {
				return ""
			}
		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s, "*/"); i >= 0 {
				s = s[i+2:]
			} else {
				return ""
			}
		case strings.HasPrefix(s, "("):
			s = s[1:]
		default:
			return s
		}
	}
}

// hasTopLevelKeyword reports whether keyword appears as a bare word outside
// quotes, comments and parentheses.
func hasTopLevelKeyword(statement, keyword string) bool {
	depth := 0
	for i := 0; i < len(statement); {
		c := statement[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := strings.IndexByte(statement[i+1:], c)
			if end == -1 {
				return false
			}
			i += end + 2
		case strings.HasPrefix(statement[i:], "--") || c == '#':
			end := strings.IndexByte(statement[i:], '\n')
			if end == -1 {
				return false
			}
			i += end + 1
		case strings.HasPrefix(statement[i:], "/*"):
			end := strings.Index(statement[i+2:], "*/")
			if end == -1 {
				return false
			}
			i += end + 4
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case isWordByte(c):
			start := i
			for i < len(statement) && isWordByte(statement[i]) {
				i++
			}
			if depth == 0 && strings.EqualFold(statement[start:i], keyword) {
				return true
			}
		default:
			i++
		}
	}
	return false
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}
