package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced with language", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}\n", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Intent string `json:"intent"`
	}

	require.NoError(t, DecodeJSON("```json\n{\"intent\": \"recipe\"}\n```", &out))
	assert.Equal(t, "recipe", out.Intent)

	assert.Error(t, DecodeJSON("not json at all", &out))
	assert.Error(t, DecodeJSON("", &out))
}
