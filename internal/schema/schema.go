// Package schema defines the canonical column names shared by every film
// table and the normalizer that maps source headers onto them.
package schema

import (
	"github.com/paveg/filmdash/internal/dataframe"
)

// Canonical column names. Components reference these constants rather than
// spelling the names out.
const (
	Title    = "title"
	Year     = "year"
	Duration = "duration"
	Metadata = "metadata"
	Genre    = "genre"
	Cast     = "cast"
)

// Source aliases reconciled by the normalizer.
const (
	metadataAlias = "meta_data"
	durationAlias = "duration_"
)

// NumericColumns lists the columns coerced and imputed in every table.
var NumericColumns = []string{Metadata, Duration, Year}

// Tables bundles the movie-level table with its two exploded membership
// tables. A nil member is treated as an empty table with no columns.
type Tables struct {
	Movies *dataframe.DataFrame
	Cast   *dataframe.DataFrame
	Genres *dataframe.DataFrame
}

// Release releases every non-nil table.
func (t Tables) Release() {
	for _, df := range []*dataframe.DataFrame{t.Movies, t.Cast, t.Genres} {
		if df != nil {
			df.Release()
		}
	}
}

// Has reports whether df is non-nil and holds every named column.
func Has(df *dataframe.DataFrame, columns ...string) bool {
	if df == nil {
		return false
	}
	for _, name := range columns {
		if !df.HasColumn(name) {
			return false
		}
	}
	return true
}
