// Package response turns raw LLM replies into typed analysis records.
package response

import (
	"strings"
	"unicode"
)

const fence = "```"

// Normalize strips markdown code-fence artifacts from a model reply. Only the
// very start and end of the text are inspected: a leading fence (with or
// without a language tag such as "json" or "jsonc-1") and a trailing bare fence are
// removed, then surrounding whitespace.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(s, fence); ok {
		s = strings.TrimLeftFunc(rest, isFenceTag)
	}
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}

// isFenceTag matches the language tag after an opening fence, which runs up
// to the first whitespace or the start of the JSON body.
func isFenceTag(r rune) bool {
	return !unicode.IsSpace(r) && r != '{' && r != '['
}

// Preview truncates s to at most n runes for diagnostics.
func Preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
