package aggregate

import (
	"math"

	"github.com/paveg/filmdash/internal/dataframe"
	"github.com/paveg/filmdash/internal/schema"
	"github.com/paveg/filmdash/internal/series"
	"github.com/paveg/filmdash/internal/stats"
)

// GroupSummary is the box-plot summary of one group.
type GroupSummary struct {
	Group string `json:"group"`
	stats.FiveNumber
}

// BoxStats summarizes the non-null values of value for each of groups, in
// the given order. Groups without values are omitted.
func BoxStats(df *dataframe.DataFrame, group, value string, groups []string) ([]GroupSummary, error) {
	const op = "BoxStats"
	snap, err := snapshot(df, op, group, value)
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	groupCol, _ := snap.Column(group)
	keys, keyValid := series.Strings(groupCol)
	values, valid, err := numeric(snap, op, value)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string][]float64, len(groups))
	for _, g := range groups {
		buckets[g] = nil
	}
	for i, key := range keys {
		if !keyValid[i] || !valid[i] {
			continue
		}
		if _, wanted := buckets[key]; wanted {
			buckets[key] = append(buckets[key], values[i])
		}
	}

	result := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		if summary, ok := stats.Summarize(buckets[g]); ok {
			result = append(result, GroupSummary{Group: g, FiveNumber: summary})
		}
	}
	return result, nil
}

// KeyMetrics are the headline numbers of a movie table. Means are NaN when
// the column is absent or empty.
type KeyMetrics struct {
	Movies       int   `json:"movies"`
	MeanDuration Float `json:"mean_duration"`
	MeanMetadata Float `json:"mean_metadata"`
}

// Describe computes KeyMetrics for movies.
func Describe(movies *dataframe.DataFrame) KeyMetrics {
	metrics := KeyMetrics{
		MeanDuration: Float(math.NaN()),
		MeanMetadata: Float(math.NaN()),
	}
	if movies == nil {
		return metrics
	}
	metrics.Movies = movies.Len()
	metrics.MeanDuration = columnMean(movies, schema.Duration)
	metrics.MeanMetadata = columnMean(movies, schema.Metadata)
	return metrics
}

func columnMean(df *dataframe.DataFrame, name string) Float {
	col, ok := df.Column(name)
	if !ok {
		return Float(math.NaN())
	}
	values, valid, numericCol := series.Float64s(col)
	if !numericCol {
		return Float(math.NaN())
	}
	observed := make([]float64, 0, len(values))
	for i, v := range values {
		if valid[i] {
			observed = append(observed, v)
		}
	}
	return Float(stats.Mean(observed))
}

// Point is one scatter plot marker.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color Float   `json:"color"`
	Label string  `json:"label,omitempty"`
}

// Scatter pairs x and y for every row where both are present. color and
// label are optional column names; an empty or absent name leaves the field
// unset (NaN color, empty label).
func Scatter(df *dataframe.DataFrame, x, y, color, label string) ([]Point, error) {
	const op = "Scatter"
	columns := []string{x, y}
	for _, extra := range []string{color, label} {
		if extra != "" && df != nil && df.HasColumn(extra) {
			columns = append(columns, extra)
		}
	}
	snap, err := snapshot(df, op, columns...)
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	xs, xValid, err := numeric(snap, op, x)
	if err != nil {
		return nil, err
	}
	ys, yValid, err := numeric(snap, op, y)
	if err != nil {
		return nil, err
	}

	var colors []float64
	var colorValid []bool
	if color != "" && snap.HasColumn(color) {
		colors, colorValid, err = numeric(snap, op, color)
		if err != nil {
			return nil, err
		}
	}
	var labels dataframe.ISeries
	if label != "" {
		labels, _ = snap.Column(label)
	}

	points := []Point{}
	for i := range xs {
		if !xValid[i] || !yValid[i] {
			continue
		}
		p := Point{X: xs[i], Y: ys[i], Color: Float(math.NaN())}
		if colors != nil && colorValid[i] {
			p.Color = Float(colors[i])
		}
		if labels != nil {
			p.Label = labels.GetAsString(i)
		}
		points = append(points, p)
	}
	return points, nil
}
