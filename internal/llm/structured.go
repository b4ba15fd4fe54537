package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaValidator checks a decoded value against its output contract
// (closed task enums, 0..1 confidence ranges) before it reaches a caller.
type SchemaValidator[T any] func(T) error

// ExtractJSON decodes the first JSON object found in raw model output.
// Every prompt in this codebase demands bare JSON, but models still wrap
// it in prose, code fences, comments, or ".8"-style number literals, so
// the text is cleaned up before unmarshaling. A non-nil validator runs
// after decoding; its failure surfaces as ErrInvalidOutput like any other
// malformed response.
func ExtractJSON[T any](raw string, validator SchemaValidator[T]) (T, error) {
	var zero T

	body := firstObject(dropFences(raw))
	if body == "" {
		return zero, fmt.Errorf("%w: no JSON object found in response", ErrInvalidOutput)
	}

	var out T
	if err := json.Unmarshal([]byte(scrub(body)), &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if validator != nil {
		if err := validator(out); err != nil {
			return zero, fmt.Errorf("%w: validation failed: %v", ErrInvalidOutput, err)
		}
	}
	return out, nil
}

// dropFences removes markdown code fence marker lines, keeping whatever
// they wrapped.
func dropFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// firstObject returns the first balanced {...} block. Braces inside
// string values (tool params carry free text) must not end the scan, so
// string literals are tracked.
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	quoted := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if quoted {
			switch c {
			case '\\':
				i++
			case '"':
				quoted = false
			}
			continue
		}
		switch c {
		case '"':
			quoted = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// scrub repairs quirks outside string values: C-style comments are
// removed and bare leading-decimal numbers (".8", "-.3") gain their
// missing zero. JSON allows neither; models emit both.
func scrub(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	quoted := false
	last := byte(0) // last non-space byte emitted outside strings
	for i := 0; i < len(s); i++ {
		c := s[i]

		if quoted {
			b.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(s) {
					i++
					b.WriteByte(s[i])
				}
			case '"':
				quoted = false
			}
			continue
		}

		switch {
		case c == '"':
			quoted = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i+1 < len(s) && s[i+1] != '\n' {
				i++
			}
			continue
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			i += 2
			for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
				i++
			}
			i++
			continue
		case c == '.' && i+1 < len(s) && isDigit(s[i+1]) && startsValue(last):
			b.WriteString("0.")
		default:
			b.WriteByte(c)
		}

		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			last = c
		}
	}
	return b.String()
}

// startsValue reports whether a numeric literal may begin after this byte.
func startsValue(c byte) bool {
	switch c {
	case 0, ':', ',', '[', '{', '-':
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
