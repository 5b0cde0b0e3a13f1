package transform

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseError indicates that no JSON object could be recovered from a model
// response. It is never retried.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string {
	return "could not parse model response: " + e.Detail
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseResponse recovers the JSON object from a model response. Three shapes
// are tolerated, tried in order: the whole body is JSON, the JSON sits
// inside a fenced code block, or the first top-level {...} object found
// anywhere in the text. The returned bytes always unmarshal into an object.
func ParseResponse(response string) ([]byte, error) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return nil, &ParseError{Detail: "response is empty"}
	}

	if isJSONObject(trimmed) {
		return []byte(trimmed), nil
	}

	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		if isJSONObject(m[1]) {
			return []byte(m[1]), nil
		}
	}

	if obj := firstObject(trimmed); obj != "" && isJSONObject(obj) {
		return []byte(obj), nil
	}

	return nil, &ParseError{Detail: "no JSON object found in response"}
}

func isJSONObject(s string) bool {
	if !strings.HasPrefix(strings.TrimSpace(s), "{") {
		return false
	}
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &obj) == nil
}

// firstObject scans for the first balanced top-level {...} region, tracking
// string literals so braces inside values do not break the count.
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
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
				return s[start : i+1]
			}
		}
	}
	return ""
}
