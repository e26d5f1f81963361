package hydrate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseFetch(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Fetch
	}{
		{name: "string is one", input: `{"o": "o"}`, want: Fetch{"o": OneOf(nil)}},
		{name: "empty array is many", input: `{"o": []}`, want: Fetch{"o": ManyOf(nil)}},
		{name: "array of string is many", input: `{"o": ["o"]}`, want: Fetch{"o": ManyOf(nil)}},
		{name: "array element is nested shape", input: `{"p": [{"c": []}]}`, want: Fetch{"p": ManyOf(Fetch{"c": ManyOf(nil)})}},
		{name: "object is one with nesting", input: `{"u": {"a": "a"}}`, want: Fetch{"u": OneOf(Fetch{"a": OneOf(nil)})}},
		{name: "true is one", input: `{"u": true}`, want: Fetch{"u": OneOf(nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw any
			require.NoError(t, json.Unmarshal([]byte(tt.input), &raw))
			got, err := ParseFetch(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFetchYAML(t *testing.T) {
	var raw any
	require.NoError(t, yaml.Unmarshal([]byte("p:\n  - c: one\nu: one\n"), &raw))
	got, err := ParseFetch(raw)
	require.NoError(t, err)
	assert.Equal(t, Fetch{"p": ManyOf(Fetch{"c": OneOf(nil)}), "u": OneOf(nil)}, got)
}

func TestParseFetchInvalid(t *testing.T) {
	for _, input := range []string{`{"o": ["a", "b"]}`, `{"o": 3}`, `["o"]`, `{"o": [3]}`} {
		var raw any
		require.NoError(t, json.Unmarshal([]byte(input), &raw))
		_, err := ParseFetch(raw)
		assert.ErrorIs(t, err, ErrInvalidShape, input)
	}
}

func TestParseFetchNil(t *testing.T) {
	got, err := ParseFetch(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFetchMerge(t *testing.T) {
	base := Fetch{"a": OneOf(nil), "b": OneOf(nil)}
	merged := base.Merge(Fetch{"b": ManyOf(nil)})
	assert.Equal(t, Fetch{"a": OneOf(nil), "b": ManyOf(nil)}, merged)
	assert.Equal(t, OneOf(nil), base["b"])
	assert.Nil(t, Fetch(nil).Merge(nil))
	assert.Equal(t, []string{"a", "b"}, merged.Aliases())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "one", One.String())
	assert.Equal(t, "many", Many.String())
}
