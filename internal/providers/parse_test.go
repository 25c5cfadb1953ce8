package providers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	IsComplete     bool     `json:"is_complete"`
	UnknownSymbols []string `json:"unknown_symbols"`
	Report         string   `json:"report"`
}

func TestParseJSON_Strategies(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"direct", `{"is_complete":true,"report":"ok"}`},
		{"fenced", "```json\n{\"is_complete\":true,\"report\":\"ok\"}\n```"},
		{"fenced in prose", "Here you go:\n```\n{\"is_complete\":true,\"report\":\"ok\"}\n```\nThanks."},
		{"trailing comma", `{"is_complete":true,"report":"ok",}`},
		{"unquoted keys", `{is_complete: true, report: "ok"}`},
		{"comments", "{\n// note\n\"is_complete\": true, /* x */ \"report\": \"ok\"}"},
		{"embedded object", `Sure. {"is_complete":true,"report":"ok"} Hope that helps.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSON[reply](tt.in)
			require.NoError(t, err)
			assert.True(t, got.IsComplete)
			assert.Equal(t, "ok", got.Report)
		})
	}
}

func TestParseJSON_KeepsURLsAndApostrophes(t *testing.T) {
	got, err := ParseJSON[reply](`{"report":"see https://example.com, it's fine"}`)
	require.NoError(t, err)
	assert.Equal(t, "see https://example.com, it's fine", got.Report)
}

func TestParseJSON_Failures(t *testing.T) {
	for _, in := range []string{"", "   ", "no json here", "{broken"} {
		_, err := ParseJSON[reply](in)
		assert.True(t, errors.Is(err, ErrMalformedJSON), "input %q: %v", in, err)
	}
}

func TestExtractJSON_PrefersFirstBracket(t *testing.T) {
	assert.Equal(t, `["a", {"b":1}]`, extractJSON(`list: ["a", {"b":1}] end`))
	assert.Equal(t, `{"a":[1]}`, extractJSON(`obj {"a":[1]} end`))
	assert.Equal(t, "", extractJSON("nothing"))
}
