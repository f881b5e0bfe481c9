// Package testutil provides film fixtures and DataFrame assertions shared by
// the package tests.
//
// The default fixture is small enough to reason about by hand:
//
//	movies  title year duration metadata
//	        A     2000 120      80
//	        B     2001 95       65
//	        C     2001 150      90
//	        D     2003 88       40
//	        E     2005 110      72
//
//	genres  (A Drama) (A Crime) (B Comedy) (C Drama) (D Horror) (E Comedy) (Z Drama)
//	cast    (A X) (A Y) (B X) (C W) (E Y) (Q X)
//
// Titles Z and Q have no movie row.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/filmdash/internal/dataframe"
	fio "github.com/paveg/filmdash/internal/io"
	"github.com/paveg/filmdash/internal/schema"
	"github.com/paveg/filmdash/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryContext provides memory allocator with automatic cleanup.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a memory allocator for tests. Release the returned
// context with defer.
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	return &TestMemoryContext{
		Allocator: memory.NewGoAllocator(),
		cleanup:   func() {},
	}
}

// FixtureOption configures FilmTables.
type FixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	explodedYears  bool
	explodedScores bool
	dropMovies     []string
	dropCast       []string
	dropGenres     []string
}

// WithExplodedYears adds a year column to the cast and genre tables whose
// values differ from the movie years (all 1990), so joins produce colliding
// year columns.
func WithExplodedYears() FixtureOption {
	return func(cfg *fixtureConfig) {
		cfg.explodedYears = true
	}
}

// WithExplodedScores adds duration and metadata columns to the cast and
// genre tables, copied from the movie row of each title. Titles without a
// movie row (Z, Q) get duration 100 and metadata 50.
func WithExplodedScores() FixtureOption {
	return func(cfg *fixtureConfig) {
		cfg.explodedScores = true
	}
}

// WithoutMovieColumns drops columns from the movie table.
func WithoutMovieColumns(columns ...string) FixtureOption {
	return func(cfg *fixtureConfig) {
		cfg.dropMovies = append(cfg.dropMovies, columns...)
	}
}

// WithoutCastColumns drops columns from the cast table.
func WithoutCastColumns(columns ...string) FixtureOption {
	return func(cfg *fixtureConfig) {
		cfg.dropCast = append(cfg.dropCast, columns...)
	}
}

// WithoutGenreColumns drops columns from the genre table.
func WithoutGenreColumns(columns ...string) FixtureOption {
	return func(cfg *fixtureConfig) {
		cfg.dropGenres = append(cfg.dropGenres, columns...)
	}
}

// FilmTables builds the default fixture with canonical column names and no
// missing values. Release the result with defer.
func FilmTables(allocator memory.Allocator, opts ...FixtureOption) schema.Tables {
	cfg := &fixtureConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	movies := dataframe.New(
		series.New(schema.Title, []string{"A", "B", "C", "D", "E"}, allocator),
		series.New(schema.Year, []int64{2000, 2001, 2001, 2003, 2005}, allocator),
		series.New(schema.Duration, []int64{120, 95, 150, 88, 110}, allocator),
		series.New(schema.Metadata, []float64{80, 65, 90, 40, 72}, allocator),
	)

	genreTitles := []string{"A", "A", "B", "C", "D", "E", "Z"}
	genreCols := []dataframe.ISeries{
		series.New(schema.Title, genreTitles, allocator),
		series.New(schema.Genre, []string{"Drama", "Crime", "Comedy", "Drama", "Horror", "Comedy", "Drama"}, allocator),
	}
	castTitles := []string{"A", "A", "B", "C", "E", "Q"}
	castCols := []dataframe.ISeries{
		series.New(schema.Title, castTitles, allocator),
		series.New(schema.Cast, []string{"X", "Y", "X", "W", "Y", "X"}, allocator),
	}
	if cfg.explodedScores {
		genreCols = append(genreCols,
			series.New(schema.Duration, lookup(genreTitles, durations, int64(100)), allocator),
			series.New(schema.Metadata, lookup(genreTitles, scores, 50.0), allocator))
		castCols = append(castCols,
			series.New(schema.Duration, lookup(castTitles, durations, int64(100)), allocator),
			series.New(schema.Metadata, lookup(castTitles, scores, 50.0), allocator))
	}
	if cfg.explodedYears {
		genreCols = append(genreCols, series.New(schema.Year, repeat(int64(1990), len(genreTitles)), allocator))
		castCols = append(castCols, series.New(schema.Year, repeat(int64(1990), len(castTitles)), allocator))
	}

	return schema.Tables{
		Movies: drop(movies, cfg.dropMovies),
		Cast:   drop(dataframe.New(castCols...), cfg.dropCast),
		Genres: drop(dataframe.New(genreCols...), cfg.dropGenres),
	}
}

var (
	durations = map[string]int64{"A": 120, "B": 95, "C": 150, "D": 88, "E": 110}
	scores    = map[string]float64{"A": 80, "B": 65, "C": 90, "D": 40, "E": 72}
)

func lookup[T any](titles []string, values map[string]T, missing T) []T {
	out := make([]T, len(titles))
	for i, title := range titles {
		v, ok := values[title]
		if !ok {
			v = missing
		}
		out[i] = v
	}
	return out
}

func repeat[T any](v T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func drop(df *dataframe.DataFrame, columns []string) *dataframe.DataFrame {
	if len(columns) == 0 {
		return df
	}
	defer df.Release()
	return df.Drop(columns...)
}

// Paths locates the three fixture CSV files written by WriteCSVFixtures.
type Paths struct {
	Movies string
	Cast   string
	Genres string
}

// WriteCSVFixtures writes the default fixture as CSV files under a fresh
// temporary directory. Headers use source spellings ("Title", "Meta Data",
// "Duration_") so loading exercises the normalizer.
func WriteCSVFixtures(tb testing.TB) Paths {
	tb.Helper()
	dir := tb.TempDir()

	paths := Paths{
		Movies: filepath.Join(dir, "movies.csv"),
		Cast:   filepath.Join(dir, "cast.csv"),
		Genres: filepath.Join(dir, "genres.csv"),
	}

	movies := "Title,Year,Duration_,Meta Data\n" +
		"A,2000,120,80\n" +
		"B,2001,95,65\n" +
		"C,2001,,90\n" +
		"D,2003,88,n/a\n" +
		"E,2005,110,72\n"
	cast := "title,cast\nA,X\nA,Y\nB,X\nC,W\nE,Y\nQ,X\n"
	genres := "title,genre\nA,Drama\nA,Crime\nB,Comedy\nC,Drama\nD,Horror\nE,Comedy\nZ,Drama\n"

	for path, content := range map[string]string{paths.Movies: movies, paths.Cast: cast, paths.Genres: genres} {
		require.NoError(tb, os.WriteFile(path, []byte(content), 0o600))
	}
	return paths
}

// AssertDataFrameEqual compares column names, order and every cell's
// display value.
func AssertDataFrameEqual(t *testing.T, expected, actual *dataframe.DataFrame) {
	t.Helper()

	require.NotNil(t, expected, "expected DataFrame should not be nil")
	require.NotNil(t, actual, "actual DataFrame should not be nil")

	require.Equal(t, expected.Columns(), actual.Columns(), "DataFrame columns should match")
	require.Equal(t, expected.Len(), actual.Len(), "DataFrame lengths should match")

	for _, name := range expected.Columns() {
		expectedCol, _ := expected.Column(name)
		actualCol, _ := actual.Column(name)
		assert.Equal(t, expectedCol.DataType().ID(), actualCol.DataType().ID(), "column %s type", name)
	}
	for i := 0; i < expected.Len(); i++ {
		assert.Equal(t, expected.Row(i), actual.Row(i), "row %d should match", i)
	}
}

// AssertDataFrameHasColumns verifies that a DataFrame has exactly the
// expected columns, in any order.
func AssertDataFrameHasColumns(t *testing.T, df *dataframe.DataFrame, expectedColumns []string) {
	t.Helper()

	require.NotNil(t, df, "DataFrame should not be nil")
	assert.ElementsMatch(t, expectedColumns, df.Columns())
}

// Column returns the display values of one column.
func Column(t *testing.T, df *dataframe.DataFrame, name string) []string {
	t.Helper()

	col, ok := df.Column(name)
	require.True(t, ok, "column %s should exist", name)
	values := make([]string, col.Len())
	for i := range values {
		values[i] = col.GetAsString(i)
	}
	return values
}

// MarshalCSV renders df with the default CSV writer.
func MarshalCSV(t *testing.T, df *dataframe.DataFrame) string {
	t.Helper()

	var out strings.Builder
	require.NoError(t, fio.NewCSVWriter(&out, fio.DefaultCSVOptions()).Write(df))
	return out.String()
}
