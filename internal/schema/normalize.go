package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/paveg/filmdash/internal/dataframe"
	dferrors "github.com/paveg/filmdash/internal/errors"
)

var lower = cases.Lower(language.Und)

var whitespaceReplacer = strings.NewReplacer(" ", "_", "\t", "_", "\n", "_")

// NormalizeName canonicalizes a single header. The exact name "metadata" is
// returned unchanged; anything else is lowercased, trimmed and has inner
// whitespace replaced with underscores. Alias reconciliation needs the full
// header set and happens in NormalizeNames.
func NormalizeName(name string) string {
	if name == Metadata {
		return name
	}
	return whitespaceReplacer.Replace(strings.TrimSpace(lower.String(name)))
}

// NormalizeNames canonicalizes a header row.
//
// After per-name normalization, "meta_data" becomes "metadata" and
// "duration_" becomes "duration" when the canonical name is not already
// taken. Names that collide after normalization keep the first occurrence;
// later ones get _1, _2, ... suffixes. A header spelled exactly "metadata"
// always keeps its name. NormalizeNames is idempotent.
func NormalizeNames(names []string) []string {
	normalized := make([]string, len(names))
	present := make(map[string]bool, len(names))
	for i, name := range names {
		normalized[i] = NormalizeName(name)
		present[normalized[i]] = true
	}

	aliases := []struct{ from, to string }{
		{metadataAlias, Metadata},
		{durationAlias, Duration},
	}
	for _, alias := range aliases {
		if present[alias.to] || !present[alias.from] {
			continue
		}
		for i, name := range normalized {
			if name == alias.from {
				normalized[i] = alias.to
				break
			}
		}
		present[alias.to] = true
	}

	taken := make(map[string]bool, len(normalized))
	reserved := -1
	for i, name := range names {
		if name == Metadata {
			reserved = i
			taken[Metadata] = true
			break
		}
	}
	for i, name := range normalized {
		if i == reserved {
			continue
		}
		candidate := name
		for n := 1; taken[candidate]; n++ {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		taken[candidate] = true
		normalized[i] = candidate
	}
	return normalized
}

// Normalize returns a copy of df with canonical column names. Column order
// and data are unchanged. Missing expected columns are not an error.
func Normalize(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	columns := df.Columns()
	normalized := NormalizeNames(columns)

	mapping := make(map[string]string, len(columns))
	for i, name := range columns {
		mapping[name] = normalized[i]
	}

	result, err := df.Rename(mapping)
	if err != nil {
		return nil, dferrors.NewInternalError("Normalize", err)
	}
	return result, nil
}
