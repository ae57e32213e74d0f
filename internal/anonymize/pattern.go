package anonymize

import (
	"fmt"
	"strings"
)

// Span is the byte range of a literal's content inside a pattern, excluding
// the surrounding quotes.
type Span struct {
	Start int
	End   int
}

// Literal is a single-quoted comparison value found in a pattern.
type Literal struct {
	Span  Span
	Value string // unescaped
}

// ExtractLiterals locates every single-quoted comparison value in a STIX
// pattern such as
//
//	[ipv4-addr:value = '10.0.0.1' OR domain-name:value = 'evil.example.com']
//
// It does not parse the boolean structure. Quoted path components
// (file:hashes.'SHA-256') and typed literals (t'...', b'...', h'...') are
// skipped, since they are not values.
//
// The pattern must start with '[' or '(' and have balanced brackets and
// terminated quotes; otherwise ErrUnsupportedPattern is returned.
func ExtractLiterals(pattern string) ([]Literal, error) {
	trimmed := strings.TrimSpace(pattern)
	if trimmed == "" || (trimmed[0] != '[' && trimmed[0] != '(') {
		return nil, fmt.Errorf("%w: must start with '[' or '('", ErrUnsupportedPattern)
	}

	var (
		literals []Literal
		brackets int
		parens   int
	)
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '[':
			brackets++
		case ']':
			brackets--
			if brackets < 0 {
				return nil, fmt.Errorf("%w: unbalanced ']' at offset %d", ErrUnsupportedPattern, i)
			}
		case '(':
			parens++
		case ')':
			parens--
			if parens < 0 {
				return nil, fmt.Errorf("%w: unbalanced ')' at offset %d", ErrUnsupportedPattern, i)
			}
		case '\'':
			end, value, err := scanQuoted(pattern, i)
			if err != nil {
				return nil, err
			}
			if isValuePosition(pattern, i) {
				if brackets == 0 {
					return nil, fmt.Errorf("%w: literal outside comparison at offset %d", ErrUnsupportedPattern, i)
				}
				literals = append(literals, Literal{
					Span:  Span{Start: i + 1, End: end},
					Value: value,
				})
			}
			i = end
		}
	}
	if brackets != 0 || parens != 0 {
		return nil, fmt.Errorf("%w: unbalanced brackets", ErrUnsupportedPattern)
	}
	return literals, nil
}

// scanQuoted reads a quoted string whose opening quote is at open. It returns
// the offset of the closing quote and the unescaped content.
func scanQuoted(pattern string, open int) (int, string, error) {
	var b strings.Builder
	for j := open + 1; j < len(pattern); j++ {
		switch pattern[j] {
		case '\\':
			if j+1 >= len(pattern) {
				return 0, "", fmt.Errorf("%w: dangling escape at offset %d", ErrUnsupportedPattern, j)
			}
			j++
			b.WriteByte(pattern[j])
		case '\'':
			return j, b.String(), nil
		default:
			b.WriteByte(pattern[j])
		}
	}
	return 0, "", fmt.Errorf("%w: unterminated literal at offset %d", ErrUnsupportedPattern, open)
}

// isValuePosition reports whether the quote at offset i opens a comparison
// value rather than a path component or a typed literal.
func isValuePosition(pattern string, i int) bool {
	if i == 0 {
		return true
	}
	switch prev := pattern[i-1]; prev {
	case '.', ':', '[':
		return false
	case 't', 'b', 'h':
		// t'2020-01-01T00:00:00Z' and friends, but not e.g. "MATCHES'..."
		return i >= 2 && isIdentByte(pattern[i-2])
	}
	return true
}

func isIdentByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-'
}

// Substitute replaces the literal content at span with newLiteral, escaping
// quotes and backslashes. Everything outside the span is left untouched.
func Substitute(pattern string, span Span, newLiteral string) (string, error) {
	if span.Start < 1 || span.End >= len(pattern) || span.Start > span.End {
		return "", fmt.Errorf("%w: span %d..%d out of range", ErrUnsupportedPattern, span.Start, span.End)
	}
	if pattern[span.Start-1] != '\'' || pattern[span.End] != '\'' {
		return "", fmt.Errorf("%w: span %d..%d is not a quoted literal", ErrUnsupportedPattern, span.Start, span.End)
	}
	return pattern[:span.Start] + escapeLiteral(newLiteral) + pattern[span.End:], nil
}

func escapeLiteral(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
