package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	e "github.com/gartstein/scout/internal/scout/errors"
)

// StripFences removes a surrounding markdown code fence (``` or ```json)
// from a model response, and otherwise trims to the outermost JSON object or
// array. Models wrap JSON in fences often enough that this normalization is
// a mandatory step before parsing.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	// Tolerate prose around the payload.
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndexByte(s, '}')
	} else {
		end = strings.LastIndexByte(s, ']')
	}
	if end <= start {
		return s
	}
	return s[start : end+1]
}

// Decode strips fences from a model response and unmarshals the remaining
// JSON into out. Any failure is an ErrParse, never a fatal error.
func Decode(response string, out any) error {
	cleaned := StripFences(response)
	if cleaned == "" {
		return fmt.Errorf("%w: empty response", e.ErrParse)
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("%w: %v", e.ErrParse, err)
	}
	return nil
}
