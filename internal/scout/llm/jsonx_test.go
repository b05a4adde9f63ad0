package llm

import (
	"testing"

	e "github.com/gartstein/scout/internal/scout/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare object",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "plain fence",
			in:   "```\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "json fence",
			in:   "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "prose around object",
			in:   `Sure, here is the data: {"a": 1} Hope that helps!`,
			want: `{"a": 1}`,
		},
		{
			name: "prose around array",
			in:   `The events are: [{"a": 1}]`,
			want: `[{"a": 1}]`,
		},
		{
			name: "fence with prose inside",
			in:   "```json\nHere you go:\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "no json at all",
			in:   "I cannot answer that.",
			want: "I cannot answer that.",
		},
		{
			name: "whitespace only",
			in:   "   \n  ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestDecode(t *testing.T) {
	var out map[string]int
	err := Decode("```json\n{\"a\": 2}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 2}, out)
}

func TestDecodeErrors(t *testing.T) {
	var out map[string]int

	err := Decode("no json here", &out)
	assert.ErrorIs(t, err, e.ErrParse)

	err = Decode("", &out)
	assert.ErrorIs(t, err, e.ErrParse)

	err = Decode(`{"a": "not a number"}`, &out)
	assert.ErrorIs(t, err, e.ErrParse)
}
