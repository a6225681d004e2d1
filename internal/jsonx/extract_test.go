package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"prose around", `Sure! Here it is: {"a":{"b":2}} hope that helps {x}`, `{"a":{"b":2}}`},
		{"brace in string", `{"a":"close } brace"} tail }`, `{"a":"close } brace"}`},
		{"escaped quote", `{"a":"say \"}\" now"}`, `{"a":"say \"}\" now"}`},
		{"json fence", "intro {not json}\n```json\n{\"title\":\"x\"}\n```\n", `{"title":"x"}`},
		{"plain fence", "```\n{\"title\":\"y\"}\n```", `{"title":"y"}`},
		{"scratchpad ignored", `<scratchpad>{"draft":true}</scratchpad>{"final":true}`, `{"final":true}`},
		{"skips invalid first", `{oops} then {"ok":true}`, `{"ok":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, got)
		})
	}
}

func TestExtractObjectFailure(t *testing.T) {
	for _, in := range []string{"", "no json here", `{"unterminated": 1`, "[1,2,3]"} {
		_, err := ExtractObject(in)
		assert.ErrorIs(t, err, ErrNoObject, in)
	}
}

func TestExtractArray(t *testing.T) {
	got, err := ExtractArray("Topics:\n```json\n[{\"title\":\"a\"},{\"title\":\"b\"}]\n```")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"title":"a"},{"title":"b"}]`, got)

	_, err = ExtractArray(`{"a":1}`)
	assert.ErrorIs(t, err, ErrNoArray)
}
