package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when no parseable JSON object or array is found in
// a reply.
var ErrNoJSON = errors.New("no JSON object found in reply")

// StripFences returns the body of the first Markdown code fence in s.
// Both ```json and bare ``` fences are recognized; an unterminated fence
// runs to the end of the text. The boolean is false when s has no fence.
func StripFences(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return s, false
	}
	body := s[start+3:]

	// Drop an info string such as "json" or "JSON" on the opening line.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		info := strings.TrimSpace(body[:nl])
		if info == "" || isFenceInfo(info) {
			body = body[nl+1:]
		}
	} else {
		body = strings.TrimPrefix(strings.TrimPrefix(body, "json"), "JSON")
	}

	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

func isFenceInfo(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// NormalizeBraces collapses doubled braces left behind by models that echo
// template syntax: "{{" becomes "{" and "}}" becomes "}".
func NormalizeBraces(s string) string {
	s = strings.ReplaceAll(s, "{{", "{")
	return strings.ReplaceAll(s, "}}", "}")
}

// FindBalancedJSON returns the first balanced {...} or [...] span in s.
// Brackets inside JSON string literals are ignored.
func FindBalancedJSON(s string) (string, bool) {
	var found string
	scanSpans(s, func(span string) bool {
		found = span
		return true
	})
	return found, found != ""
}

// FindJSONSpan returns the first balanced span of s that decodes as a JSON
// object or array, trying the doubled-brace repair when the raw span fails.
func FindJSONSpan(s string) (string, bool) {
	var found string
	scanSpans(s, func(span string) bool {
		if _, err := decodeJSONValue(span); err == nil {
			found = span
			return true
		}
		if fixed := NormalizeBraces(span); fixed != span {
			if _, err := decodeJSONValue(fixed); err == nil {
				found = fixed
				return true
			}
		}
		return false
	})
	return found, found != ""
}

// scanSpans hands each top-level balanced span of s to visit until visit
// returns true. Spans nested inside a visited span are never offered, and a
// span still open at the end of s stops the scan, so a truncated reply
// never yields one of its inner fragments. Each byte is scanned once.
func scanSpans(s string, visit func(span string) bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		end, status := balancedEnd(s, i)
		switch status {
		case spanOpen:
			return
		case spanMismatch:
			i = end
		case spanClosed:
			if visit(s[i : end+1]) {
				return
			}
			i = end
		}
	}
}

type spanStatus int

const (
	spanClosed   spanStatus = iota // balanced, end is the closing bracket
	spanMismatch                   // wrong closer at end
	spanOpen                       // input ended before the span closed
)

// balancedEnd scans from the bracket at s[start] to the bracket closing it.
func balancedEnd(s string, start int) (int, spanStatus) {
	stack := make([]byte, 0, 8)
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if stack[len(stack)-1] != c {
				return i, spanMismatch
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, spanClosed
			}
		}
	}
	return len(s), spanOpen
}

// ParseJSONReply recovers a JSON object from a free-form model reply.
//
// Fenced content is tried first, then balanced spans of the whole text.
// Each candidate is decoded as-is and then with doubled braces collapsed,
// so legitimately nested "}}" is never rewritten unless the raw text fails.
// A top-level array is wrapped as {"items": [...]}.
func ParseJSONReply(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoJSON
	}

	var lastErr error
	try := func(candidate string) map[string]any {
		out, err := decodeJSONObject(candidate)
		if err == nil {
			return out
		}
		lastErr = err
		if fixed := NormalizeBraces(candidate); fixed != candidate {
			if out, err := decodeJSONObject(fixed); err == nil {
				return out
			}
		}
		return nil
	}

	if body, fenced := StripFences(text); fenced {
		if out := try(body); out != nil {
			return out, nil
		}
		if span, ok := FindJSONSpan(body); ok {
			if out := try(span); out != nil {
				return out, nil
			}
		}
	} else if out := try(text); out != nil {
		return out, nil
	}

	if span, ok := FindJSONSpan(text); ok {
		if out := try(span); out != nil {
			return out, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSON, lastErr)
	}
	return nil, ErrNoJSON
}

func decodeJSONValue(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeJSONObject(s string) (map[string]any, error) {
	v, err := decodeJSONValue(s)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case map[string]any:
		return val, nil
	case []any:
		return map[string]any{"items": val}, nil
	default:
		return nil, fmt.Errorf("reply is a JSON %T, not an object or array", v)
	}
}
