package llm

import (
	"encoding/json"
	"strings"
)

// RepairJSON attempts to recover a parseable JSON document from raw model
// output. It applies two passes:
//
//  1. Strip surrounding prose and markdown fences.
//  2. Extract the largest balanced {...} or [...] substring.
//
// Returns the repaired text and whether it parses as JSON.
func RepairJSON(raw string) (string, bool) {
	text := stripFences(raw)
	if json.Valid([]byte(text)) {
		return text, true
	}

	if extracted := extractBalanced(text); extracted != "" && json.Valid([]byte(extracted)) {
		return extracted, true
	}
	return text, false
}

// stripFences removes ```json ... ``` fences and surrounding whitespace.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag on the opening fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "json" || first == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractBalanced returns the largest balanced {...} or [...] substring,
// respecting JSON string literals and escapes.
func extractBalanced(s string) string {
	best := ""
	for _, pair := range [2][2]byte{{'{', '}'}, {'[', ']'}} {
		open, closing := pair[0], pair[1]
		start := strings.IndexByte(s, open)
		if start < 0 {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case open:
				depth++
			case closing:
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if len(candidate) > len(best) {
						best = candidate
					}
					i = len(s) // done with this pair
				}
			}
		}
	}
	return best
}
