package filter

import (
	"fmt"
	"math"
	"slices"

	"github.com/paveg/filmdash/internal/dataframe"
	dferrors "github.com/paveg/filmdash/internal/errors"
	"github.com/paveg/filmdash/internal/schema"
	"github.com/paveg/filmdash/internal/series"
)

// IntRange is an inclusive integer interval.
type IntRange struct {
	Min int64 `json:"min" yaml:"min"`
	Max int64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies in the interval.
func (r IntRange) Contains(v float64) bool {
	return v >= float64(r.Min) && v <= float64(r.Max)
}

// Range is an inclusive floating point interval.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies in the interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// State is the complete filter configuration for one interaction. It is
// passed by value; the engine never keeps or modifies it.
type State struct {
	YearRange     IntRange `json:"year_range"`
	MetadataRange Range    `json:"metadata_range"`
	// Genres restricts movies to those with at least one listed genre.
	// Empty means no restriction.
	Genres []string `json:"genres"`
	// CastMembers restricts movies to those featuring at least one listed
	// actor. Empty means no restriction.
	CastMembers []string `json:"cast_members"`
}

// Validate rejects inverted ranges.
func (s State) Validate() error {
	if s.YearRange.Min > s.YearRange.Max {
		return dferrors.NewInvalidInputError("Filter",
			fmt.Sprintf("year range %d > %d", s.YearRange.Min, s.YearRange.Max))
	}
	if s.MetadataRange.Min > s.MetadataRange.Max {
		return dferrors.NewInvalidInputError("Filter",
			fmt.Sprintf("metadata range %g > %g", s.MetadataRange.Min, s.MetadataRange.Max))
	}
	return nil
}

// Fallback holds the ranges used when the movie table lacks a column.
type Fallback struct {
	YearRange     IntRange `json:"year_range" yaml:"year_range"`
	MetadataRange Range    `json:"metadata_range" yaml:"metadata_range"`
}

// DefaultFallback returns the built-in fallback ranges.
func DefaultFallback() Fallback {
	return Fallback{
		YearRange:     IntRange{Min: 1900, Max: 2025},
		MetadataRange: Range{Min: 0, Max: 100},
	}
}

// Defaults returns the unrestricted state for movies: the year range spans
// the observed minimum and maximum year, the metadata range spans the floor
// of the minimum to the ceiling of the maximum score. A missing or empty
// column takes the fallback range.
func Defaults(movies *dataframe.DataFrame, fallback Fallback) State {
	state := State{
		YearRange:     fallback.YearRange,
		MetadataRange: fallback.MetadataRange,
	}

	if lo, hi, ok := observedRange(movies, schema.Year); ok {
		state.YearRange = IntRange{Min: int64(math.Floor(lo)), Max: int64(math.Ceil(hi))}
	}
	if lo, hi, ok := observedRange(movies, schema.Metadata); ok {
		state.MetadataRange = Range{Min: math.Floor(lo), Max: math.Ceil(hi)}
	}
	return state
}

func observedRange(df *dataframe.DataFrame, column string) (lo, hi float64, ok bool) {
	if df == nil {
		return 0, 0, false
	}
	col, exists := df.Column(column)
	if !exists {
		return 0, 0, false
	}
	values, valid, numeric := series.Float64s(col)
	if !numeric {
		return 0, 0, false
	}
	for i, v := range values {
		if !valid[i] {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, ok
}

// Options lists the selectable genres and cast members.
type Options struct {
	Genres []string `json:"genres"`
	Cast   []string `json:"cast"`
}

// AvailableOptions returns the sorted distinct non-null genres and cast
// members. A table without the column contributes an empty list.
func AvailableOptions(tables schema.Tables) Options {
	return Options{
		Genres: distinct(tables.Genres, schema.Genre),
		Cast:   distinct(tables.Cast, schema.Cast),
	}
}

func distinct(df *dataframe.DataFrame, column string) []string {
	out := []string{}
	if !schema.Has(df, column) {
		return out
	}
	col, _ := df.Column(column)
	values, valid := series.Strings(col)
	seen := make(map[string]bool)
	for i, v := range values {
		if valid[i] && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}
