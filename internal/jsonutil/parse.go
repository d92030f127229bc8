// Package jsonutil extracts JSON objects from model responses that may be
// wrapped in markdown code fences or embedded in prose.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	jsonFence  = "```json"
	plainFence = "```"
)

// MalformedResponseError reports model output that does not contain a
// parseable JSON object.
type MalformedResponseError struct {
	Reason  string
	Preview string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	msg := "malformed model response: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Preview != "" {
		msg += " (text: " + e.Preview + ")"
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// FencedJSON returns the interior of the first ```json fenced block in text.
// The closing fence is optional; an unterminated block runs to the end.
func FencedJSON(text string) (string, bool) {
	start := strings.Index(text, jsonFence)
	if start == -1 {
		return "", false
	}
	body := text[start+len(jsonFence):]
	if end := strings.Index(body, plainFence); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

// ObjectSpan returns the substring from the first '{' to the last '}'
// inclusive.
func ObjectSpan(text string) (string, error) {
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", &MalformedResponseError{Reason: "no JSON object found", Preview: preview(text)}
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return "", &MalformedResponseError{Reason: "no closing } found", Preview: preview(text)}
	}
	return text[startIdx : endIdx+1], nil
}

// locate applies the extraction priority: a ```json fence wins, otherwise
// the outermost brace span.
func locate(raw string) (string, error) {
	if fenced, ok := FencedJSON(raw); ok {
		return fenced, nil
	}
	return ObjectSpan(raw)
}

// ExtractJSONObject locates a single JSON object in raw and decodes it.
// Anything other than an object (array, scalar, invalid JSON) fails with
// *MalformedResponseError.
func ExtractJSONObject(raw string) (map[string]any, error) {
	jsonStr, err := locate(raw)
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal([]byte(jsonStr), &value); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid JSON", Preview: preview(jsonStr), Err: err}
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("expected JSON object, got %s", kindOf(value)), Preview: preview(jsonStr)}
	}
	return obj, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// preview truncates text for inclusion in error messages.
func preview(s string) string {
	return Truncate(strings.TrimSpace(s), 200)
}

// Truncate cuts s to at most maxLen bytes and appends "..." when anything was
// dropped. The cut never splits a UTF-8 sequence.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
