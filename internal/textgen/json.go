package textgen

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned by DecodeJSON when the text holds no JSON value.
var ErrNoJSON = errors.New("no JSON value in generated text")

// StripCodeFences removes Markdown fence lines (```json, ```) from s.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if strings.HasPrefix(strings.TrimSpace(ln), "```") {
			continue
		}
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// ExtractJSON returns the first complete JSON object or array in s after
// stripping code fences, or "" if there is none. Leading prose is skipped.
func ExtractJSON(s string) string {
	s = StripCodeFences(s)
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return strings.TrimSpace(string(raw))
		}
	}
	return ""
}

// DecodeJSON extracts the first JSON value from generated text into v.
func DecodeJSON(s string, v any) error {
	raw := ExtractJSON(s)
	if raw == "" {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(raw), v)
}
