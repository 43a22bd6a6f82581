package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type longestResult struct {
	count, start, end int64
}

// TestCalcLongest verifies the two-pointer sweep against the boundary
// scenarios, ratio 1.
func TestCalcLongest(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data []int64
		want longestResult
	}{
		{name: "empty", data: nil, want: longestResult{0, 0, 0}},
		{name: "single", data: []int64{1}, want: longestResult{1, 1, 1}},
		{name: "pair", data: []int64{1, 2}, want: longestResult{2, 1, 2}},
		{name: "all consecutive", data: []int64{1, 2, 3, 4}, want: longestResult{4, 1, 4}},
		{
			name: "best in middle",
			data: []int64{1, 2, 3, 4, 8, 9, 20, 21, 22, 23, 24},
			want: longestResult{5, 20, 24},
		},
		{
			name: "tie keeps earlier run",
			data: []int64{1, 2, 3, 4, 5, 9, 20, 21, 22, 23, 24},
			want: longestResult{5, 1, 5},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			count, start, end := calcLongest(tc.data, 1)
			assert.Equal(t, tc.want, longestResult{count, start, end})
		})
	}
}

// TestCalcLongest_SameDayCollapse verifies duplicate-period events extend
// the window without inflating the count.
func TestCalcLongest_SameDayCollapse(t *testing.T) {
	t.Parallel()

	// Two events in period 1, one in period 2: a two-period run.
	count, start, end := calcLongest([]int64{1, 1, 2}, 1)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, int64(1), start)
	assert.Equal(t, int64(2), end)
}
