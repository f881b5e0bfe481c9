package dashboard_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/filmdash/internal/aggregate"
	"github.com/paveg/filmdash/internal/config"
	"github.com/paveg/filmdash/internal/dashboard"
	dferrors "github.com/paveg/filmdash/internal/errors"
	"github.com/paveg/filmdash/internal/filter"
	"github.com/paveg/filmdash/internal/impute"
	fio "github.com/paveg/filmdash/internal/io"
	"github.com/paveg/filmdash/internal/loader"
	"github.com/paveg/filmdash/internal/monitoring"
	"github.com/paveg/filmdash/internal/schema"
	"github.com/paveg/filmdash/internal/testutil"
)

func newDashboard(t *testing.T, cfg config.Config, opts ...testutil.FixtureOption) *dashboard.Dashboard {
	t.Helper()
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	tables := testutil.FilmTables(mem.Allocator, opts...)
	defer tables.Release()

	d, err := dashboard.New(tables, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func filterView(t *testing.T, d *dashboard.Dashboard, state filter.State) *dashboard.View {
	t.Helper()
	view, err := d.Filter(state)
	require.NoError(t, err)
	t.Cleanup(view.Release)
	return view
}

func TestNew(t *testing.T) {
	t.Run("derives defaults and options", func(t *testing.T) {
		d := newDashboard(t, config.NewConfig())

		choices := d.Options()
		assert.Equal(t, filter.IntRange{Min: 2000, Max: 2005}, choices.Defaults.YearRange)
		assert.Equal(t, filter.Range{Min: 40, Max: 90}, choices.Defaults.MetadataRange)
		assert.Empty(t, choices.Defaults.Genres)
		assert.Empty(t, choices.Defaults.CastMembers)
		assert.Equal(t, []string{"Comedy", "Crime", "Drama", "Horror"}, choices.Filters.Genres)
		assert.Equal(t, []string{"W", "X", "Y"}, choices.Filters.Cast)
	})

	t.Run("falls back to configured ranges", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.FallbackMetadataMin = 1
		cfg.FallbackMetadataMax = 10
		d := newDashboard(t, cfg, testutil.WithoutMovieColumns(schema.Metadata, schema.Year))

		defaults := d.Defaults()
		assert.Equal(t, filter.IntRange{Min: 1900, Max: 2025}, defaults.YearRange)
		assert.Equal(t, filter.Range{Min: 1, Max: 10}, defaults.MetadataRange)
		assert.Equal(t, cfg.WithDefaults(), d.Config())
	})

	t.Run("does not take ownership of the input tables", func(t *testing.T) {
		mem := testutil.SetupMemoryTest(t)
		defer mem.Release()

		tables := testutil.FilmTables(mem.Allocator)
		defer tables.Release()

		d, err := dashboard.New(tables, config.NewConfig(), nil)
		require.NoError(t, err)
		d.Close()

		assert.Equal(t, 5, tables.Movies.Len())
		assert.Equal(t, []string{"A", "B", "C", "D", "E"}, testutil.Column(t, tables.Movies, schema.Title))
	})

	t.Run("prepares loaded sources", func(t *testing.T) {
		paths := testutil.WriteCSVFixtures(t)
		l, err := loader.New(4, nil)
		require.NoError(t, err)
		defer l.Purge()

		tables, err := l.LoadTables(context.Background(), loader.Paths(paths))
		require.NoError(t, err)
		defer tables.Release()

		d, err := dashboard.New(tables, config.NewConfig(), nil)
		require.NoError(t, err)
		defer d.Close()

		movies := d.Tables().Movies
		testutil.AssertDataFrameHasColumns(t, movies, []string{
			schema.Title, schema.Year, schema.Duration, schema.Metadata,
		})
		assert.Equal(t, []string{"120", "95", "102", "88", "110"}, testutil.Column(t, movies, schema.Duration))
		assert.Equal(t, []string{"80", "65", "90", "76", "72"}, testutil.Column(t, movies, schema.Metadata))

		report := d.Reports()["movies"]
		require.NotNil(t, report)
		assert.Equal(t, 1, columnReport(t, report, schema.Duration).Filled)
		assert.Equal(t, 1, columnReport(t, report, schema.Metadata).Unparseable)
		assert.Equal(t, 1, columnReport(t, report, schema.Metadata).Filled)
	})
}

func columnReport(t *testing.T, report *impute.Report, name string) impute.ColumnReport {
	t.Helper()
	for _, col := range report.Columns {
		if col.Column == name {
			return col
		}
	}
	t.Fatalf("no report for column %s", name)
	return impute.ColumnReport{}
}

func TestFilter(t *testing.T) {
	d := newDashboard(t, config.NewConfig())

	t.Run("defaults select everything", func(t *testing.T) {
		view := filterView(t, d, d.Defaults())
		assert.Equal(t, 5, view.Movies.Len())
		assert.Equal(t, []string{"A", "A", "B", "C", "D", "E"}, testutil.Column(t, view.Genres, schema.Title))
		assert.Equal(t, []string{"A", "A", "B", "C", "E"}, testutil.Column(t, view.Cast, schema.Title))
	})

	t.Run("membership rows follow the selection", func(t *testing.T) {
		state := d.Defaults()
		state.Genres = []string{"Comedy"}
		view := filterView(t, d, state)

		assert.Equal(t, []string{"B", "E"}, testutil.Column(t, view.Movies, schema.Title))
		assert.Equal(t, []string{"X", "Y"}, testutil.Column(t, view.Cast, schema.Cast))
	})

	t.Run("rejects inverted ranges", func(t *testing.T) {
		state := d.Defaults()
		state.YearRange = filter.IntRange{Min: 2005, Max: 2000}
		_, err := d.Filter(state)
		require.Error(t, err)
		assert.True(t, errors.Is(err, dferrors.ErrInvalidInput))
	})

	t.Run("base tables are untouched", func(t *testing.T) {
		state := d.Defaults()
		state.YearRange = filter.IntRange{Min: 2001, Max: 2001}
		view := filterView(t, d, state)
		_ = view.Report()

		assert.Equal(t, 2, view.Movies.Len())
		assert.Equal(t, 5, d.Tables().Movies.Len())
		assert.Equal(t, 7, d.Tables().Genres.Len())
		assert.Equal(t, 6, d.Tables().Cast.Len())
	})
}

func TestOverview(t *testing.T) {
	d := newDashboard(t, config.NewConfig())
	view := filterView(t, d, d.Defaults())

	overview := view.Overview()
	assert.Equal(t, 5, overview.Metrics.Movies)
	assert.InDelta(t, 112.6, float64(overview.Metrics.MeanDuration), 1e-9)
	assert.InDelta(t, 69.4, float64(overview.Metrics.MeanMetadata), 1e-9)

	require.True(t, overview.GenresCovered.Available)
	assert.Equal(t, 4, overview.GenresCovered.Data)

	require.True(t, overview.TopGenres.Available)
	genres := overview.TopGenres.Data
	require.Len(t, genres, 4)
	assert.Equal(t, "Drama", genres[0].Value)
	assert.Equal(t, "Comedy", genres[1].Value)
	assert.InDelta(t, 2.0/6.0, float64(genres[0].Share), 1e-9)

	require.True(t, overview.TopCast.Available)
	cast := overview.TopCast.Data
	require.Len(t, cast, 3)
	assert.Equal(t, []string{"X", "Y", "W"}, []string{cast[0].Value, cast[1].Value, cast[2].Value})
	assert.InDelta(t, 0.2, float64(cast[2].Share), 1e-9)

	t.Run("top N is configurable", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.OverviewTopN = 1
		d := newDashboard(t, cfg)
		view := filterView(t, d, d.Defaults())

		overview := view.Overview()
		require.Len(t, overview.TopGenres.Data, 1)
		assert.Equal(t, "Drama", overview.TopGenres.Data[0].Value)
		assert.InDelta(t, 1.0, float64(overview.TopGenres.Data[0].Share), 1e-9)
	})

	t.Run("movies without titles", func(t *testing.T) {
		d := newDashboard(t, config.NewConfig(), testutil.WithoutMovieColumns(schema.Title))
		view := filterView(t, d, d.Defaults())

		overview := view.Overview()
		assert.Equal(t, 5, overview.Metrics.Movies)
		assert.False(t, overview.GenresCovered.Available)
		assert.Zero(t, overview.GenresCovered.Data)
		assert.False(t, overview.TopGenres.Available)
		assert.False(t, overview.TopCast.Available)
	})
}

func TestGenreAnalysis(t *testing.T) {
	d := newDashboard(t, config.NewConfig(), testutil.WithExplodedScores())
	view := filterView(t, d, d.Defaults())

	section := view.GenreAnalysis()
	require.True(t, section.Available)
	genres := section.Data

	require.True(t, genres.Counts.Available)
	assert.Equal(t, []aggregate.Count{
		{Value: "Drama", Count: 2},
		{Value: "Comedy", Count: 2},
		{Value: "Crime", Count: 1},
		{Value: "Horror", Count: 1},
	}, genres.Counts.Data)

	require.True(t, genres.MeanMetadata.Available)
	means := genres.MeanMetadata.Data
	require.Len(t, means, 4)
	assert.Equal(t, "Drama", means[0].Group)
	assert.InDelta(t, 85.0, float64(means[0].Mean), 1e-9)
	assert.Equal(t, "Comedy", means[2].Group)
	assert.InDelta(t, 68.5, float64(means[2].Mean), 1e-9)

	require.True(t, genres.DurationBox.Available)
	box := genres.DurationBox.Data
	require.Len(t, box, 4)
	assert.Equal(t, "Drama", box[0].Group)
	assert.Equal(t, 120.0, box[0].Min)
	assert.Equal(t, 150.0, box[0].Max)
	assert.Equal(t, 135.0, box[0].Median)
	assert.Equal(t, 2, box[0].Count)

	require.True(t, genres.Heatmap.Available)
	heatmap := genres.Heatmap.Data
	assert.Equal(t, []string{"2000", "2001", "2003", "2005"}, heatmap.Rows)
	assert.Equal(t, []string{"Comedy", "Crime", "Drama", "Horror"}, heatmap.Columns)
	assert.Equal(t, 1, heatmap.At("2001", "Drama"))
	assert.Equal(t, 1, heatmap.At("2001", "Comedy"))
	assert.Equal(t, 0, heatmap.At("2000", "Comedy"))

	t.Run("membership tables without scores", func(t *testing.T) {
		d := newDashboard(t, config.NewConfig())
		view := filterView(t, d, d.Defaults())

		section := view.GenreAnalysis()
		require.True(t, section.Available)
		assert.True(t, section.Data.Counts.Available)
		assert.False(t, section.Data.MeanMetadata.Available)
		assert.Contains(t, section.Data.MeanMetadata.Reason, schema.Metadata)
		assert.False(t, section.Data.DurationBox.Available)
		assert.True(t, section.Data.Heatmap.Available)
	})

	t.Run("missing genre column", func(t *testing.T) {
		d := newDashboard(t, config.NewConfig(), testutil.WithoutGenreColumns(schema.Genre))
		view := filterView(t, d, d.Defaults())

		section := view.GenreAnalysis()
		assert.False(t, section.Available)
		assert.False(t, section.InsufficientData)
		assert.Contains(t, section.Reason, schema.Genre)

		overview := view.Overview()
		assert.False(t, overview.TopGenres.Available)
		assert.False(t, overview.GenresCovered.Available)
		assert.True(t, overview.TopCast.Available)
	})
}

func TestCastAnalysis(t *testing.T) {
	d := newDashboard(t, config.NewConfig(), testutil.WithExplodedScores())
	view := filterView(t, d, d.Defaults())

	section := view.CastAnalysis()
	require.True(t, section.Available)
	cast := section.Data

	require.True(t, cast.Counts.Available)
	assert.Equal(t, []aggregate.Count{
		{Value: "X", Count: 2},
		{Value: "Y", Count: 2},
		{Value: "W", Count: 1},
	}, cast.Counts.Data)

	require.True(t, cast.MeanMetadata.Available)
	means := cast.MeanMetadata.Data
	require.Len(t, means, 3)
	assert.Equal(t, []string{"W", "Y", "X"}, []string{means[0].Group, means[1].Group, means[2].Group})
	assert.InDelta(t, 72.5, float64(means[2].Mean), 1e-9)

	require.True(t, cast.MetadataBox.Available)
	require.Len(t, cast.MetadataBox.Data, 3)
	assert.Equal(t, "X", cast.MetadataBox.Data[0].Group)

	require.True(t, cast.Appearances.Available)
	assert.Equal(t, []dashboard.Appearance{
		{Year: 2000, Cast: "X", Appearances: 1},
		{Year: 2000, Cast: "Y", Appearances: 1},
		{Year: 2001, Cast: "W", Appearances: 1},
		{Year: 2001, Cast: "X", Appearances: 1},
		{Year: 2005, Cast: "Y", Appearances: 1},
	}, cast.Appearances.Data)

	t.Run("appearances use the movie year", func(t *testing.T) {
		d := newDashboard(t, config.NewConfig(), testutil.WithExplodedYears())
		view := filterView(t, d, d.Defaults())

		section := view.CastAnalysis()
		require.True(t, section.Available)
		require.True(t, section.Data.Appearances.Available)
		for _, a := range section.Data.Appearances.Data {
			assert.NotEqual(t, int64(1990), a.Year)
		}
	})

	t.Run("top actors are configurable", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.CastBoxTopN = 1
		d := newDashboard(t, cfg, testutil.WithExplodedScores())
		view := filterView(t, d, d.Defaults())

		section := view.CastAnalysis()
		require.True(t, section.Data.Appearances.Available)
		assert.Equal(t, []dashboard.Appearance{
			{Year: 2000, Cast: "X", Appearances: 1},
			{Year: 2001, Cast: "X", Appearances: 1},
		}, section.Data.Appearances.Data)
	})

	t.Run("missing title column", func(t *testing.T) {
		d := newDashboard(t, config.NewConfig(), testutil.WithoutCastColumns(schema.Title))
		view := filterView(t, d, d.Defaults())

		section := view.CastAnalysis()
		assert.False(t, section.Available)
		assert.Contains(t, section.Reason, schema.Title)
	})
}

func TestTrends(t *testing.T) {
	d := newDashboard(t, config.NewConfig())

	t.Run("computed on the filtered selection", func(t *testing.T) {
		state := d.Defaults()
		state.Genres = []string{"Comedy"}
		view := filterView(t, d, state)

		trends := view.Trends()
		require.True(t, trends.MoviesPerYear.Available)
		assert.Equal(t, []aggregate.YearValue{
			{Year: 2001, Value: 1},
			{Year: 2005, Value: 1},
		}, trends.MoviesPerYear.Data)

		require.True(t, trends.GenreHeatmap.Available)
		assert.Equal(t, []string{"2001", "2005"}, trends.GenreHeatmap.Data.Rows)
		assert.Equal(t, []string{"Comedy"}, trends.GenreHeatmap.Data.Columns)
	})

	t.Run("yearly means", func(t *testing.T) {
		view := filterView(t, d, d.Defaults())

		trends := view.Trends()
		require.True(t, trends.MeanDuration.Available)
		require.Len(t, trends.MeanDuration.Data, 4)
		assert.Equal(t, int64(2001), trends.MeanDuration.Data[1].Year)
		assert.InDelta(t, 122.5, float64(trends.MeanDuration.Data[1].Value), 1e-9)

		require.True(t, trends.MeanMetadata.Available)
		assert.InDelta(t, 77.5, float64(trends.MeanMetadata.Data[1].Value), 1e-9)
	})

	t.Run("missing year", func(t *testing.T) {
		d := newDashboard(t, config.NewConfig(), testutil.WithoutMovieColumns(schema.Year))
		view := filterView(t, d, d.Defaults())

		trends := view.Trends()
		assert.False(t, trends.MoviesPerYear.Available)
		assert.False(t, trends.MeanDuration.Available)
		assert.False(t, trends.GenreHeatmap.Available)
	})
}

func TestScatter(t *testing.T) {
	d := newDashboard(t, config.NewConfig())
	view := filterView(t, d, d.Defaults())

	plots := view.Scatter()
	require.True(t, plots.MetadataByDuration.Available)
	plot := plots.MetadataByDuration.Data
	assert.Equal(t, schema.Duration, plot.X)
	assert.Equal(t, schema.Metadata, plot.Y)
	assert.Equal(t, schema.Year, plot.Color)
	require.Len(t, plot.Points, 5)
	assert.Equal(t, aggregate.Point{X: 120, Y: 80, Color: 2000, Label: "A"}, plot.Points[0])

	assert.True(t, plots.MetadataByYear.Available)
	assert.True(t, plots.DurationByYear.Available)

	t.Run("missing colour column", func(t *testing.T) {
		d := newDashboard(t, config.NewConfig(), testutil.WithoutMovieColumns(schema.Year))
		view := filterView(t, d, d.Defaults())

		plots := view.Scatter()
		require.True(t, plots.MetadataByDuration.Available)
		assert.Empty(t, plots.MetadataByDuration.Data.Color)
		assert.True(t, plots.MetadataByDuration.Data.Points[0].Color.IsNaN())
		assert.False(t, plots.MetadataByYear.Available)
		assert.False(t, plots.DurationByYear.Available)
	})
}

func TestCorrelation(t *testing.T) {
	d := newDashboard(t, config.NewConfig())

	t.Run("matrix over numeric columns", func(t *testing.T) {
		view := filterView(t, d, d.Defaults())

		corr := view.Correlation()
		require.True(t, corr.Available)
		assert.Equal(t, schema.NumericColumns, corr.Data.Columns)
		for i := range corr.Data.Columns {
			assert.InDelta(t, 1.0, float64(corr.Data.Values[i][i]), 1e-9)
		}
	})

	t.Run("insufficient rows", func(t *testing.T) {
		state := d.Defaults()
		state.YearRange = filter.IntRange{Min: 2000, Max: 2000}
		view := filterView(t, d, state)

		corr := view.Correlation()
		assert.False(t, corr.Available)
		assert.True(t, corr.InsufficientData)
		assert.Nil(t, corr.Data)
	})

	t.Run("insufficient columns", func(t *testing.T) {
		d := newDashboard(t, config.NewConfig(), testutil.WithoutMovieColumns(schema.Year, schema.Duration))
		view := filterView(t, d, d.Defaults())

		corr := view.Correlation()
		assert.False(t, corr.Available)
		assert.True(t, corr.InsufficientData)
	})
}

func TestTable(t *testing.T) {
	d := newDashboard(t, config.NewConfig())
	view := filterView(t, d, d.Defaults())

	table := view.Table()
	assert.Equal(t, []string{schema.Title, schema.Year, schema.Duration, schema.Metadata}, table.Columns)
	require.Len(t, table.Rows, 5)
	assert.Equal(t, []string{"A", "2000", "120", "80"}, table.Rows[0])
	assert.Equal(t, 5, table.TotalRows)
	assert.False(t, table.Truncated)

	t.Run("row limit", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.TableRowsLimit = 2
		d := newDashboard(t, cfg)
		view := filterView(t, d, d.Defaults())

		table := view.Table()
		assert.Len(t, table.Rows, 2)
		assert.Equal(t, 5, table.TotalRows)
		assert.True(t, table.Truncated)
	})
}

func TestExport(t *testing.T) {
	d := newDashboard(t, config.NewConfig())

	state := d.Defaults()
	state.Genres = []string{"Comedy"}
	view := filterView(t, d, state)

	first, err := view.Export()
	require.NoError(t, err)
	assert.Equal(t, "title,year,duration,metadata\nB,2001,95,65\nE,2005,110,72\n", string(first))

	second, err := view.Export()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	t.Run("write through a DataWriter", func(t *testing.T) {
		var out strings.Builder
		require.NoError(t, view.WriteTo(fio.NewCSVWriter(&out, fio.DefaultCSVOptions())))
		assert.Equal(t, string(first), out.String())
	})

	t.Run("matches the table view", func(t *testing.T) {
		view := filterView(t, d, d.Defaults())
		data, err := view.Export()
		require.NoError(t, err)
		assert.Equal(t, testutil.MarshalCSV(t, view.Movies), string(data))
	})
}

func TestReportJSON(t *testing.T) {
	d := newDashboard(t, config.NewConfig(), testutil.WithoutMovieColumns(schema.Metadata))
	view := filterView(t, d, d.Defaults())

	data, err := json.Marshal(view.Report())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mean_metadata":null`)
	assert.Contains(t, string(data), `"available":false`)
}

func TestStageMetrics(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	tables := testutil.FilmTables(mem.Allocator)
	defer tables.Release()

	collector := monitoring.NewCollector(true, 0)
	d, err := dashboard.New(tables, config.NewConfig(), collector)
	require.NoError(t, err)
	defer d.Close()

	view, err := d.Filter(d.Defaults())
	require.NoError(t, err)
	defer view.Release()

	_ = view.Trends()
	_, err = view.Export()
	require.NoError(t, err)

	summary := collector.GetSummary()
	for _, stage := range []string{
		monitoring.StagePrepare,
		monitoring.StageFilter,
		monitoring.StageJoin,
		monitoring.StageAggregate,
		monitoring.StageExport,
	} {
		assert.Contains(t, summary.Stages, stage)
	}
	assert.Equal(t, int64(5), summary.Stages[monitoring.StageFilter].TotalRows)
}
