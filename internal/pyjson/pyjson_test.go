package pyjson

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{
			name:  "sorted keys and python separators",
			input: map[string]any{"b": "2", "a": "1"},
			want:  `{"a": "1", "b": "2"}`,
		},
		{
			name:  "nested structure",
			input: map[string]any{"Header": map[string]any{"realm": "ocean"}, "variable_entry": map[string]any{}},
			want:  `{"Header": {"realm": "ocean"}, "variable_entry": {}}`,
		},
		{
			name:  "string slices",
			input: map[string]any{"dimensions": []string{"longitude", "latitude", "time"}},
			want:  `{"dimensions": ["longitude", "latitude", "time"]}`,
		},
		{
			name:  "empty list",
			input: []any{},
			want:  `[]`,
		},
		{
			name:  "non-ascii escaped",
			input: "degC °",
			want:  `"degC \u00b0"`,
		},
		{
			name:  "astral plane uses surrogate pair",
			input: "\U0001F600",
			want:  `"\ud83d\ude00"`,
		},
		{
			name:  "control characters",
			input: "a\nb\tc\x01\"\\/",
			want:  `"a\nb\tc\u0001\"\\/"`,
		},
		{
			name:  "html characters are not escaped",
			input: "<a & b>",
			want:  `"<a & b>"`,
		},
		{
			name:  "null and bools",
			input: []any{nil, true, false},
			want:  `[null, true, false]`,
		},
		{
			name:  "map of strings",
			input: map[string]string{"z": "1", "y": "2"},
			want:  `{"y": "2", "z": "1"}`,
		},
		{
			name: "struct falls back through encoding/json",
			input: struct {
				Name string `json:"name"`
				Size int    `json:"size"`
			}{Name: "tos", Size: 3},
			want: `{"name": "tos", "size": 3}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"5", "5"},
		{"-12", "-12"},
		{"0.001", "0.001"},
		{"1e20", "1e+20"},
		{"1.0e20", "1e+20"},
		{"100000", "100000"},
		{"100000.0", "100000.0"},
		{"1e3", "1000.0"},
		{"0.0001", "0.0001"},
		{"0.00009", "9e-05"},
		{"1e16", "1e+16"},
		{"-0.0", "-0.0"},
		{"12345678901234567890", "12345678901234567890"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(json.Number(tt.in)))
		})
	}
}
