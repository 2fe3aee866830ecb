// Package llm holds shared helpers for the language-model backends. The model
// contract itself lives in the root package (recipeagent.LLM): the machine
// sends a prompt plus context and gets text back, nothing more.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes a surrounding markdown code fence from a model reply.
// Models are told not to fence their JSON, but some do anyway.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DecodeJSON parses a model reply into v, tolerating code fences. Any schema
// mismatch surfaces as an error for the caller to treat as a parsing failure.
func DecodeJSON(raw string, v any) error {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return fmt.Errorf("empty model output")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("model output is not valid JSON: %w", err)
	}
	return nil
}
