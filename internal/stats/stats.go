// Package stats holds the small numeric summaries shared by imputation and
// aggregation.
package stats

import (
	"math"
	"slices"

	"golang.org/x/exp/constraints"
)

// Number is any built-in integer or floating point type.
type Number interface {
	constraints.Integer | constraints.Float
}

// Mean returns the arithmetic mean, or NaN for an empty slice.
func Mean[T Number](values []T) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}

// Median returns the middle value, averaging the two middle values for even
// lengths. It returns NaN for an empty slice. The input is not reordered.
func Median[T Number](values []T) float64 {
	return Quantile(values, 0.5)
}

// Quantile returns the q-th quantile using linear interpolation between
// closest ranks. q is clamped to [0, 1]. It returns NaN for an empty slice.
func Quantile[T Number](values []T, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	for i, v := range values {
		sorted[i] = float64(v)
	}
	slices.Sort(sorted)
	return sortedQuantile(sorted, q)
}

func sortedQuantile(sorted []float64, q float64) float64 {
	q = math.Max(0, math.Min(1, q))
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// FiveNumber is a box-plot summary.
type FiveNumber struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// Summarize returns the five-number summary of values. ok is false for an
// empty slice.
func Summarize[T Number](values []T) (FiveNumber, bool) {
	if len(values) == 0 {
		return FiveNumber{}, false
	}
	sorted := make([]float64, len(values))
	for i, v := range values {
		sorted[i] = float64(v)
	}
	slices.Sort(sorted)
	return FiveNumber{
		Min:    sorted[0],
		Q1:     sortedQuantile(sorted, 0.25),
		Median: sortedQuantile(sorted, 0.5),
		Q3:     sortedQuantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
		Count:  len(sorted),
	}, true
}

// Pearson returns the Pearson correlation of x and y over the positions
// where both are valid. It returns NaN when fewer than two such positions
// exist or either side has zero variance.
func Pearson(x, y []float64, xValid, yValid []bool) float64 {
	var n, sumX, sumY float64
	for i := range x {
		if xValid[i] && yValid[i] {
			n++
			sumX += x[i]
			sumY += y[i]
		}
	}
	if n < 2 {
		return math.NaN()
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range x {
		if xValid[i] && yValid[i] {
			dx, dy := x[i]-meanX, y[i]-meanY
			cov += dx * dy
			varX += dx * dx
			varY += dy * dy
		}
	}
	if varX == 0 || varY == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varX*varY)
}
