// Package aggregate computes the summaries behind every dashboard chart.
//
// Each operation works on a private copy of the columns it needs, so the
// caller's table can be shared by other aggregates in the same interaction.
// A missing column is reported as errors.ErrMissingColumn; callers treat it
// as an unavailable chart.
package aggregate

import (
	"math"
	"slices"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/paveg/filmdash/internal/dataframe"
	dferrors "github.com/paveg/filmdash/internal/errors"
	"github.com/paveg/filmdash/internal/series"
)

// Float is a float64 that encodes NaN and infinities as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// IsNaN reports whether f is NaN.
func (f Float) IsNaN() bool {
	return math.IsNaN(float64(f))
}

// snapshot returns an independent copy of the named columns of df.
func snapshot(df *dataframe.DataFrame, op string, columns ...string) (*dataframe.DataFrame, error) {
	if df == nil {
		return nil, dferrors.NewInvalidInputError(op, "nil table")
	}
	for _, name := range columns {
		if !df.HasColumn(name) {
			return nil, dferrors.NewColumnNotFoundError(op, name)
		}
	}
	view := df.Select(columns...)
	defer view.Release()
	return view.Copy(), nil
}

// numeric reads a column of snap as floats.
func numeric(snap *dataframe.DataFrame, op, name string) ([]float64, []bool, error) {
	col, _ := snap.Column(name)
	values, valid, ok := series.Float64s(col)
	if !ok {
		return nil, nil, dferrors.NewUnsupportedTypeError(op, name, col.DataType().String())
	}
	return values, valid, nil
}

func truncate[T any](items []T, topN int) []T {
	if topN > 0 && len(items) > topN {
		return items[:topN]
	}
	return items
}

// Count is one value_counts entry.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts counts each distinct non-null value of column, most frequent
// first. Equal counts keep the order in which values first appear. topN <= 0
// returns every value.
func ValueCounts(df *dataframe.DataFrame, column string, topN int) ([]Count, error) {
	snap, err := snapshot(df, "ValueCounts", column)
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	col, _ := snap.Column(column)
	values, valid := series.Strings(col)

	index := make(map[string]int)
	counts := []Count{}
	for i, v := range values {
		if !valid[i] {
			continue
		}
		pos, seen := index[v]
		if !seen {
			pos = len(counts)
			index[v] = pos
			counts = append(counts, Count{Value: v})
		}
		counts[pos].Count++
	}

	slices.SortStableFunc(counts, func(a, b Count) int {
		return b.Count - a.Count
	})
	return truncate(counts, topN), nil
}

// GroupValue is one group_mean entry.
type GroupValue struct {
	Group string `json:"group"`
	Mean  Float  `json:"mean"`
	Count int    `json:"count"`
}

// GroupMean averages the non-null values of value per non-null group,
// highest mean first. Equal means are ordered by group name; groups with no
// values have a NaN mean and sort last. topN <= 0 returns every group.
func GroupMean(df *dataframe.DataFrame, group, value string, topN int) ([]GroupValue, error) {
	const op = "GroupMean"
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

	type acc struct {
		sum   float64
		count int
	}
	sums := make(map[string]*acc)
	for i, key := range keys {
		if !keyValid[i] {
			continue
		}
		a, ok := sums[key]
		if !ok {
			a = &acc{}
			sums[key] = a
		}
		if valid[i] {
			a.sum += values[i]
			a.count++
		}
	}

	result := make([]GroupValue, 0, len(sums))
	for key, a := range sums {
		mean := math.NaN()
		if a.count > 0 {
			mean = a.sum / float64(a.count)
		}
		result = append(result, GroupValue{Group: key, Mean: Float(mean), Count: a.count})
	}

	slices.SortFunc(result, func(a, b GroupValue) int {
		aNaN, bNaN := a.Mean.IsNaN(), b.Mean.IsNaN()
		switch {
		case aNaN && !bNaN:
			return 1
		case !aNaN && bNaN:
			return -1
		case !aNaN && a.Mean != b.Mean:
			if a.Mean > b.Mean {
				return -1
			}
			return 1
		}
		return compareKeys(a.Group, b.Group)
	})
	return truncate(result, topN), nil
}

// Restrict returns the rows of df whose column value is one of values.
func Restrict(df *dataframe.DataFrame, column string, values []string) (*dataframe.DataFrame, error) {
	if df == nil {
		return nil, dferrors.NewInvalidInputError("Restrict", "nil table")
	}
	col, ok := df.Column(column)
	if !ok {
		return nil, dferrors.NewColumnNotFoundError("Restrict", column)
	}

	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		wanted[v] = true
	}
	keep := make([]bool, df.Len())
	for i := range keep {
		keep[i] = !col.IsNull(i) && wanted[col.GetAsString(i)]
	}
	return df.Filter(keep), nil
}

// Values extracts the Value field of counts, in order.
func Values(counts []Count) []string {
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Value
	}
	return out
}

// compareKeys orders numeric strings numerically and everything else
// lexicographically; numbers sort before non-numbers.
func compareKeys(a, b string) int {
	af, aErr := strconv.ParseFloat(a, 64)
	bf, bErr := strconv.ParseFloat(b, 64)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
