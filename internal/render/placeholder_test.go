package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseVariable covers the placeholder grammar.
func TestParseVariable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Variable
		ok   bool
	}{
		{in: "${foo}", want: Variable{Index: 0, Column: "foo"}, ok: true},
		{in: "${1:foo}", want: Variable{Index: 1, Column: "foo"}, ok: true},
		{in: "${12:a_b}", want: Variable{Index: 12, Column: "a_b"}, ok: true},
		{in: "${x:y}", want: Variable{Index: 0, Column: "x:y"}, ok: true},
		{in: "prefix ${foo} suffix", want: Variable{Column: "foo"}, ok: true},
		{in: "${}", ok: false},
		{in: "no placeholder", ok: false},
		{in: "${unterminated", ok: false},
	}

	for _, tc := range cases {
		got, ok := ParseVariable(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)

		if tc.ok {
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}

// TestResolveValue verifies string and in-sequence placeholder binding.
func TestResolveValue(t *testing.T) {
	t.Parallel()

	cms := []ColumnMap{
		{"foo": []any{"a", "b", "c"}},
		{"bar": []any{int64(1), int64(2)}},
	}

	// A bare placeholder string inlines the whole column.
	resolved := resolveValue("${foo}", cms)
	assert.Equal(t, []any{"a", "b", "c"}, resolved)

	// An indexed placeholder selects the statement's ColumnMap.
	resolved = resolveValue("${1:bar}", cms)
	assert.Equal(t, []any{int64(1), int64(2)}, resolved)

	// Placeholders inside a sequence are spliced in place.
	resolved = resolveValue([]any{"head", "${foo}", "tail"}, cms)
	assert.Equal(t, []any{"head", "a", "b", "c", "tail"}, resolved)

	// Unresolvable placeholders stay unchanged.
	assert.Equal(t, "${nope}", resolveValue("${nope}", cms))
	assert.Equal(t, "${9:foo}", resolveValue("${9:foo}", cms))
}

// TestNewColumnMap verifies column-wise reshaping of a query result.
func TestNewColumnMap(t *testing.T) {
	t.Parallel()

	cm := NewColumnMap(&resultFixture)

	values, ok := cm.Get("n")
	require.True(t, ok)
	assert.Equal(t, []any{int64(1), int64(2)}, values)

	labels, ok := cm.Get("label")
	require.True(t, ok)
	assert.Equal(t, []any{"x", "y"}, labels)

	_, ok = cm.Get("missing")
	assert.False(t, ok)
}
