package aggregate

import (
	"math"
	"slices"

	"github.com/paveg/filmdash/internal/dataframe"
	dferrors "github.com/paveg/filmdash/internal/errors"
	"github.com/paveg/filmdash/internal/schema"
)

// Op selects the per-year reduction.
type Op int

const (
	// OpCount counts non-null values, or rows when no value column is given.
	OpCount Op = iota
	// OpMean averages non-null values.
	OpMean
)

func (o Op) String() string {
	if o == OpMean {
		return "mean"
	}
	return "count"
}

// YearValue is one row of a yearly aggregate.
type YearValue struct {
	Year  int64 `json:"year"`
	Value Float `json:"value"`
}

// YearlyAggregate groups df by year and reduces value with op, one entry per
// observed year in ascending order. With OpCount an empty value counts rows.
// Rows with a null year are skipped; a year whose values are all null has a
// zero count or a NaN mean.
func YearlyAggregate(df *dataframe.DataFrame, value string, op Op) ([]YearValue, error) {
	const name = "YearlyAggregate"
	columns := []string{schema.Year}
	if value != "" {
		columns = append(columns, value)
	} else if op == OpMean {
		return nil, dferrors.NewInvalidInputError(name, "mean requires a value column")
	}

	snap, err := snapshot(df, name, columns...)
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	years, yearValid, err := numeric(snap, name, schema.Year)
	if err != nil {
		return nil, err
	}

	var values []float64
	var valid []bool
	if value != "" {
		if op == OpMean {
			values, valid, err = numeric(snap, name, value)
			if err != nil {
				return nil, err
			}
		} else {
			col, _ := snap.Column(value)
			valid = make([]bool, col.Len())
			for i := range valid {
				valid[i] = !col.IsNull(i)
			}
		}
	}

	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[int64]*acc)
	for i, y := range years {
		if !yearValid[i] {
			continue
		}
		year := int64(y)
		a, ok := groups[year]
		if !ok {
			a = &acc{}
			groups[year] = a
		}
		if valid == nil || valid[i] {
			a.count++
			if values != nil {
				a.sum += values[i]
			}
		}
	}

	result := make([]YearValue, 0, len(groups))
	for year, a := range groups {
		v := float64(a.count)
		if op == OpMean {
			v = math.NaN()
			if a.count > 0 {
				v = a.sum / float64(a.count)
			}
		}
		result = append(result, YearValue{Year: year, Value: Float(v)})
	}
	slices.SortFunc(result, func(a, b YearValue) int {
		switch {
		case a.Year < b.Year:
			return -1
		case a.Year > b.Year:
			return 1
		}
		return 0
	})
	return result, nil
}
