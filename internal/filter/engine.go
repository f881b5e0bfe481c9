// Package filter narrows the movie table to the rows selected by a State.
//
// Apply is a pure function of the base tables and the state. Each step runs
// on the previous step's output and becomes a no-op when the column it needs
// is missing: year range, metadata range, genre membership, cast membership.
package filter

import (
	xxhash "github.com/cespare/xxhash/v2"

	"github.com/paveg/filmdash/internal/dataframe"
	"github.com/paveg/filmdash/internal/schema"
	"github.com/paveg/filmdash/internal/series"
)

// Apply returns the movies selected by state. tables is not modified.
func Apply(tables schema.Tables, state State) (*dataframe.DataFrame, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	if tables.Movies == nil {
		return dataframe.New(), nil
	}

	result := tables.Movies.Select(tables.Movies.Columns()...)

	steps := []func(*dataframe.DataFrame) []bool{
		func(df *dataframe.DataFrame) []bool {
			return rangeMask(df, schema.Year, state.YearRange.Contains)
		},
		func(df *dataframe.DataFrame) []bool {
			return rangeMask(df, schema.Metadata, state.MetadataRange.Contains)
		},
		func(df *dataframe.DataFrame) []bool {
			return membershipMask(df, tables.Genres, schema.Genre, state.Genres)
		},
		func(df *dataframe.DataFrame) []bool {
			return membershipMask(df, tables.Cast, schema.Cast, state.CastMembers)
		},
	}

	for _, step := range steps {
		mask := step(result)
		if mask == nil {
			continue
		}
		next := result.Filter(mask)
		result.Release()
		result = next
	}
	return result, nil
}

// rangeMask keeps rows whose numeric column value satisfies contains. Nulls
// are dropped. A nil mask means the column is missing or not numeric.
func rangeMask(df *dataframe.DataFrame, column string, contains func(float64) bool) []bool {
	col, ok := df.Column(column)
	if !ok {
		return nil
	}
	values, valid, numeric := series.Float64s(col)
	if !numeric {
		return nil
	}
	mask := make([]bool, len(values))
	for i, v := range values {
		mask[i] = valid[i] && contains(v)
	}
	return mask
}

// membershipMask keeps movies whose title appears in exploded next to one of
// the selected values. A nil mask means no selection or missing columns.
func membershipMask(movies, exploded *dataframe.DataFrame, column string, selected []string) []bool {
	if len(selected) == 0 || !schema.Has(exploded, schema.Title, column) || !schema.Has(movies, schema.Title) {
		return nil
	}

	wanted := NewTitleSet(len(selected))
	for _, v := range selected {
		wanted.Add(v)
	}

	titles := NewTitleSet(exploded.Len())
	titleCol, _ := exploded.Column(schema.Title)
	valueCol, _ := exploded.Column(column)
	for i := 0; i < exploded.Len(); i++ {
		if titleCol.IsNull(i) || valueCol.IsNull(i) {
			continue
		}
		if wanted.Contains(valueCol.GetAsString(i)) {
			titles.Add(titleCol.GetAsString(i))
		}
	}

	return titleMask(movies, titles)
}

func titleMask(df *dataframe.DataFrame, titles *TitleSet) []bool {
	col, _ := df.Column(schema.Title)
	mask := make([]bool, df.Len())
	for i := range mask {
		mask[i] = !col.IsNull(i) && titles.Contains(col.GetAsString(i))
	}
	return mask
}

// Members returns the rows of exploded whose title appears in movies. When
// either table lacks a title column exploded is returned as a shared copy.
func Members(exploded, movies *dataframe.DataFrame) *dataframe.DataFrame {
	if exploded == nil {
		return dataframe.New()
	}
	if !schema.Has(exploded, schema.Title) || !schema.Has(movies, schema.Title) {
		return exploded.Select(exploded.Columns()...)
	}

	titles := NewTitleSet(movies.Len())
	col, _ := movies.Column(schema.Title)
	for i := 0; i < movies.Len(); i++ {
		if !col.IsNull(i) {
			titles.Add(col.GetAsString(i))
		}
	}
	return exploded.Filter(titleMask(exploded, titles))
}

// TitleSet is a string set bucketed by xxhash.
type TitleSet struct {
	buckets map[uint64][]string
}

// NewTitleSet returns an empty set sized for n entries.
func NewTitleSet(n int) *TitleSet {
	return &TitleSet{buckets: make(map[uint64][]string, n)}
}

// Add inserts title.
func (s *TitleSet) Add(title string) {
	h := xxhash.Sum64String(title)
	for _, existing := range s.buckets[h] {
		if existing == title {
			return
		}
	}
	s.buckets[h] = append(s.buckets[h], title)
}

// Contains reports whether title was added.
func (s *TitleSet) Contains(title string) bool {
	for _, existing := range s.buckets[xxhash.Sum64String(title)] {
		if existing == title {
			return true
		}
	}
	return false
}

// Len returns the number of distinct titles.
func (s *TitleSet) Len() int {
	n := 0
	for _, bucket := range s.buckets {
		n += len(bucket)
	}
	return n
}
