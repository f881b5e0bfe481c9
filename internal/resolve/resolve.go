// Package resolve attaches the movie year to exploded membership tables.
//
// Every title to year join goes through AttachYear so cast and genre
// analyses resolve colliding year columns the same way.
package resolve

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/filmdash/internal/dataframe"
	dferrors "github.com/paveg/filmdash/internal/errors"
	"github.com/paveg/filmdash/internal/schema"
	"github.com/paveg/filmdash/internal/series"
)

// Candidate names produced when both sides of the join carry a year.
var (
	explodedYear = schema.Year + dataframe.DefaultLeftSuffix
	movieYear    = schema.Year + dataframe.DefaultRightSuffix
)

// Result is an exploded table with a single non-null year column.
type Result struct {
	Frame *dataframe.DataFrame
	// Dropped counts exploded rows removed because no year could be
	// resolved, typically titles without a movie row.
	Dropped int
}

// Err returns a join mismatch error when rows were dropped, nil otherwise.
func (r Result) Err() error {
	if r.Dropped == 0 {
		return nil
	}
	return dferrors.NewJoinMismatchError("AttachYear", r.Dropped)
}

// Release releases the resolved table.
func (r Result) Release() {
	if r.Frame != nil {
		r.Frame.Release()
	}
}

// AttachYear left-joins movies[title, year] onto exploded by title.
//
// When both tables carry a year, the movie year wins and the exploded year
// fills its gaps. When only one side carries a year it is used as is. Rows
// still without a year are dropped and counted. Neither input is modified.
func AttachYear(exploded, movies *dataframe.DataFrame) (Result, error) {
	const op = "AttachYear"

	if !schema.Has(exploded, schema.Title) {
		return Result{}, dferrors.NewColumnNotFoundError(op, schema.Title)
	}
	if !schema.Has(movies, schema.Title) {
		return Result{}, dferrors.NewColumnNotFoundError(op, schema.Title)
	}
	if !exploded.HasColumn(schema.Year) && !movies.HasColumn(schema.Year) {
		return Result{}, dferrors.NewColumnNotFoundError(op, schema.Year)
	}

	right := movies.Select(schema.Title, schema.Year)
	defer right.Release()

	joined, err := exploded.Join(right, &dataframe.JoinOptions{
		Type: dataframe.LeftJoin,
		Key:  schema.Title,
	})
	if err != nil {
		return Result{}, err
	}
	defer joined.Release()

	withYear, err := resolveYear(joined)
	if err != nil {
		return Result{}, err
	}
	defer withYear.Release()

	year, _ := withYear.Column(schema.Year)
	keep := make([]bool, withYear.Len())
	dropped := 0
	for i := range keep {
		keep[i] = !year.IsNull(i)
		if !keep[i] {
			dropped++
		}
	}

	return Result{Frame: withYear.Filter(keep), Dropped: dropped}, nil
}

// resolveYear collapses the year candidates of a joined table into one
// column named year.
func resolveYear(joined *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	hasExploded := joined.HasColumn(explodedYear)
	hasMovie := joined.HasColumn(movieYear)

	switch {
	case hasExploded && hasMovie:
		fallback, _ := joined.Column(explodedYear)
		preferred, _ := joined.Column(movieYear)
		merged, err := coalesce(schema.Year, preferred, fallback)
		if err != nil {
			return nil, err
		}
		rest := joined.Drop(explodedYear, movieYear)
		defer rest.Release()
		return rest.WithColumn(merged), nil
	case hasMovie:
		return joined.Rename(map[string]string{movieYear: schema.Year})
	case hasExploded:
		return joined.Rename(map[string]string{explodedYear: schema.Year})
	case joined.HasColumn(schema.Year):
		return joined.Select(joined.Columns()...), nil
	default:
		return nil, dferrors.NewColumnNotFoundError("AttachYear", schema.Year)
	}
}

// coalesce takes preferred where it is valid and fallback otherwise. Two
// int64 inputs give an int64 column; any other numeric mix gives float64.
func coalesce(name string, preferred, fallback dataframe.ISeries) (dataframe.ISeries, error) {
	prefValues, prefValid, ok := series.Float64s(preferred)
	if !ok {
		return nil, dferrors.NewUnsupportedTypeError("AttachYear", preferred.Name(), preferred.DataType().String())
	}
	fbValues, fbValid, ok := series.Float64s(fallback)
	if !ok {
		return nil, dferrors.NewUnsupportedTypeError("AttachYear", fallback.Name(), fallback.DataType().String())
	}

	values := make([]float64, len(prefValues))
	valid := make([]bool, len(prefValues))
	for i := range values {
		switch {
		case prefValid[i]:
			values[i], valid[i] = prefValues[i], true
		case fbValid[i]:
			values[i], valid[i] = fbValues[i], true
		}
	}

	mem := memory.NewGoAllocator()
	if preferred.DataType().ID() == arrow.INT64 && fallback.DataType().ID() == arrow.INT64 {
		ints := make([]int64, len(values))
		for i, v := range values {
			ints[i] = int64(v)
		}
		return series.NewNullable(name, ints, valid, mem)
	}
	return series.NewNullable(name, values, valid, mem)
}
