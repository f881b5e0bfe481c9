// Package impute coerces the numeric film columns and fills their missing
// values.
//
// Coercion turns metadata, duration and year into float64 columns where
// anything unparseable or non-finite is null. Imputation fills the nulls
// with the column median; duration and year are then truncated to int64.
package impute

import (
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/filmdash/internal/dataframe"
	dferrors "github.com/paveg/filmdash/internal/errors"
	"github.com/paveg/filmdash/internal/schema"
	"github.com/paveg/filmdash/internal/series"
	"github.com/paveg/filmdash/internal/stats"
)

// ColumnReport describes what coercion and imputation did to one column.
type ColumnReport struct {
	Column      string  `json:"column"`
	Unparseable int     `json:"unparseable"`
	Filled      int     `json:"filled"`
	FillValue   float64 `json:"fill_value"`
	// NoObservations is set when the column had no usable value and was
	// filled with zero.
	NoObservations bool `json:"no_observations"`
}

// Err returns an unparseable-value error when coercion nulled any value of
// the column, nil otherwise.
func (c ColumnReport) Err() error {
	if c.Unparseable == 0 {
		return nil
	}
	return dferrors.NewUnparseableError("Coerce", c.Column, c.Unparseable)
}

// Report collects per-column results in processing order.
type Report struct {
	Columns []ColumnReport `json:"columns"`
}

func (r *Report) column(name string) *ColumnReport {
	for i := range r.Columns {
		if r.Columns[i].Column == name {
			return &r.Columns[i]
		}
	}
	r.Columns = append(r.Columns, ColumnReport{Column: name})
	return &r.Columns[len(r.Columns)-1]
}

// integerColumns are truncated to int64 after filling.
var integerColumns = map[string]bool{
	schema.Duration: true,
	schema.Year:     true,
}

// Coerce converts every present numeric column to float64. Values that do
// not parse, and NaN or infinite values, become null. The counts of such
// values are recorded in the report.
func Coerce(df *dataframe.DataFrame, report *Report) (*dataframe.DataFrame, error) {
	mem := memory.NewGoAllocator()
	result := df.Select(df.Columns()...)

	for _, name := range schema.NumericColumns {
		col, ok := result.Column(name)
		if !ok {
			continue
		}
		values, valid, unparseable, err := toFloat64(col)
		if err != nil {
			result.Release()
			return nil, err
		}
		coerced, err := series.NewNullable(name, values, valid, mem)
		if err != nil {
			result.Release()
			return nil, dferrors.NewInternalError("Coerce", err)
		}
		next := result.WithColumn(coerced)
		result.Release()
		result = next

		if report != nil {
			report.column(name).Unparseable += unparseable
		}
	}
	return result, nil
}

// toFloat64 reads any supported column as finite float64 values.
func toFloat64(col dataframe.ISeries) (values []float64, valid []bool, unparseable int, err error) {
	arr := col.Array()
	defer arr.Release()

	n := arr.Len()
	values = make([]float64, n)
	valid = make([]bool, n)

	set := func(i int, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			unparseable++
			return
		}
		values[i] = v
		valid[i] = true
	}

	switch typed := arr.(type) {
	case *array.Float64:
		for i := 0; i < n; i++ {
			if typed.IsValid(i) {
				set(i, typed.Value(i))
			}
		}
	case *array.Int64:
		for i := 0; i < n; i++ {
			if typed.IsValid(i) {
				set(i, float64(typed.Value(i)))
			}
		}
	case *array.Boolean:
		for i := 0; i < n; i++ {
			if typed.IsValid(i) {
				v := 0.0
				if typed.Value(i) {
					v = 1
				}
				set(i, v)
			}
		}
	case *array.String:
		for i := 0; i < n; i++ {
			if !typed.IsValid(i) {
				continue
			}
			raw := strings.TrimSpace(typed.Value(i))
			if raw == "" {
				continue
			}
			v, parseErr := strconv.ParseFloat(raw, 64)
			if parseErr != nil {
				unparseable++
				continue
			}
			set(i, v)
		}
	default:
		return nil, nil, 0, dferrors.NewUnsupportedTypeError("Coerce", col.Name(), arr.DataType().String())
	}
	return values, valid, unparseable, nil
}

// Impute fills nulls in every present numeric column with that column's
// median. duration and year are truncated to int64 afterwards; metadata
// stays float64. A column with no observed values is filled with zero.
// Columns must be numeric, which Coerce guarantees.
func Impute(df *dataframe.DataFrame, report *Report) (*dataframe.DataFrame, error) {
	mem := memory.NewGoAllocator()
	result := df.Select(df.Columns()...)

	for _, name := range schema.NumericColumns {
		col, ok := result.Column(name)
		if !ok {
			continue
		}
		values, valid, numeric := series.Float64s(col)
		if !numeric {
			result.Release()
			return nil, dferrors.NewUnsupportedTypeError("Impute", name, col.DataType().String())
		}

		observed := make([]float64, 0, len(values))
		for i, v := range values {
			if valid[i] {
				observed = append(observed, v)
			}
		}
		fill := stats.Median(observed)
		empty := len(observed) == 0
		if empty {
			fill = 0
		}

		filled := 0
		for i := range values {
			if !valid[i] {
				values[i] = fill
				filled++
			}
		}

		var replacement dataframe.ISeries
		if integerColumns[name] {
			ints := make([]int64, len(values))
			for i, v := range values {
				ints[i] = int64(math.Trunc(v))
			}
			replacement = series.New(name, ints, mem)
		} else {
			replacement = series.New(name, values, mem)
		}

		next := result.WithColumn(replacement)
		result.Release()
		result = next

		if report != nil {
			entry := report.column(name)
			entry.Filled += filled
			entry.FillValue = fill
			entry.NoObservations = empty
		}
	}
	return result, nil
}

// Prepare normalizes the column names of df, coerces its numeric columns
// and imputes their missing values. The returned report is never nil.
func Prepare(df *dataframe.DataFrame) (*dataframe.DataFrame, *Report, error) {
	report := &Report{}

	normalized, err := schema.Normalize(df)
	if err != nil {
		return nil, report, err
	}
	defer normalized.Release()

	coerced, err := Coerce(normalized, report)
	if err != nil {
		return nil, report, err
	}
	defer coerced.Release()

	imputed, err := Impute(coerced, report)
	if err != nil {
		return nil, report, err
	}
	return imputed, report, nil
}

// PrepareTables runs Prepare on each non-nil table. Reports are keyed by
// "movies", "cast" and "genres".
func PrepareTables(tables schema.Tables) (schema.Tables, map[string]*Report, error) {
	var out schema.Tables
	reports := make(map[string]*Report, 3)

	targets := []struct {
		name string
		src  *dataframe.DataFrame
		dst  **dataframe.DataFrame
	}{
		{"movies", tables.Movies, &out.Movies},
		{"cast", tables.Cast, &out.Cast},
		{"genres", tables.Genres, &out.Genres},
	}
	for _, target := range targets {
		if target.src == nil {
			continue
		}
		df, report, err := Prepare(target.src)
		if err != nil {
			out.Release()
			return schema.Tables{}, nil, err
		}
		*target.dst = df
		reports[target.name] = report
	}
	return out, reports, nil
}
