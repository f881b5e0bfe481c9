package stats_test

import (
	"math"
	"testing"

	"github.com/paveg/filmdash/internal/stats"
	"github.com/stretchr/testify/assert"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, stats.Median(tt.values), 1e-12)
		})
	}

	t.Run("empty", func(t *testing.T) {
		assert.True(t, math.IsNaN(stats.Median([]int64{})))
	})

	t.Run("does not reorder input", func(t *testing.T) {
		values := []int64{3, 1, 2}
		stats.Median(values)
		assert.Equal(t, []int64{3, 1, 2}, values)
	})
}

func TestMean(t *testing.T) {
	assert.InDelta(t, 2.0, stats.Mean([]int64{1, 2, 3}), 1e-12)
	assert.True(t, math.IsNaN(stats.Mean([]float64{})))
}

func TestSummarize(t *testing.T) {
	summary, ok := stats.Summarize([]float64{1, 2, 3, 4, 5})
	assert.True(t, ok)
	assert.Equal(t, stats.FiveNumber{Min: 1, Q1: 2, Median: 3, Q3: 4, Max: 5, Count: 5}, summary)

	_, ok = stats.Summarize([]float64{})
	assert.False(t, ok)
}

func TestPearson(t *testing.T) {
	all := []bool{true, true, true, true}

	t.Run("perfect positive", func(t *testing.T) {
		r := stats.Pearson([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, all, all)
		assert.InDelta(t, 1.0, r, 1e-12)
	})

	t.Run("perfect negative", func(t *testing.T) {
		r := stats.Pearson([]float64{1, 2, 3, 4}, []float64{8, 6, 4, 2}, all, all)
		assert.InDelta(t, -1.0, r, 1e-12)
	})

	t.Run("pairwise complete", func(t *testing.T) {
		r := stats.Pearson(
			[]float64{1, 2, 3, 100},
			[]float64{1, 2, 3, 0},
			all,
			[]bool{true, true, true, false},
		)
		assert.InDelta(t, 1.0, r, 1e-12)
	})

	t.Run("constant column", func(t *testing.T) {
		r := stats.Pearson([]float64{1, 1, 1, 1}, []float64{1, 2, 3, 4}, all, all)
		assert.True(t, math.IsNaN(r))
	})
}
