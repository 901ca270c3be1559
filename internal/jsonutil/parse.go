// Package jsonutil pulls JSON payloads out of free-form LLM responses, which
// are often wrapped in markdown fences or surrounded by prose.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a response contains no JSON object or array.
var ErrNoJSON = errors.New("no JSON content found")

// StripFences returns the body of a ```json ... ``` block, or text unchanged
// when it is not fenced.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	_, body, found := strings.Cut(text, "\n")
	if !found {
		return text
	}
	if i := strings.LastIndex(body, "```"); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}

// Extract returns the first balanced JSON object or array in text. Brackets
// inside string literals are ignored.
func Extract(text string) (string, error) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON starting at offset %d", start)
}

// Parse strips fences, extracts the JSON payload and unmarshals it into T.
func Parse[T any](raw string) (T, error) {
	var out T
	payload, err := Extract(StripFences(raw))
	if err != nil {
		return out, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		preview := payload
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return out, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview)
	}
	return out, nil
}
