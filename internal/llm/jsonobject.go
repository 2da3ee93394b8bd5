package llm

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ParseObject turns raw completion content into a JSON object. Markdown code
// fences and leading or trailing prose around a single object are tolerated.
func ParseObject(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrEmptyResponse
	}
	trimmed = stripCodeFence(trimmed)
	if isObject(trimmed) {
		return json.RawMessage(trimmed), nil
	}
	if candidate, ok := firstBalancedObject(trimmed); ok && isObject(candidate) {
		return json.RawMessage(candidate), nil
	}
	return nil, ErrInvalidJSON
}

func isObject(s string) bool {
	b := []byte(s)
	return json.Valid(b) && bytes.HasPrefix(bytes.TrimSpace(b), []byte("{"))
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		lang := strings.TrimSpace(s[:nl])
		if lang == "" || strings.EqualFold(lang, "json") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// firstBalancedObject scans for the first top-level {...} span, ignoring
// braces inside string literals.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
