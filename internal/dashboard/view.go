package dashboard

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/paveg/filmdash/internal/aggregate"
	"github.com/paveg/filmdash/internal/dataframe"
	dferrors "github.com/paveg/filmdash/internal/errors"
	"github.com/paveg/filmdash/internal/filter"
	fio "github.com/paveg/filmdash/internal/io"
	"github.com/paveg/filmdash/internal/monitoring"
	"github.com/paveg/filmdash/internal/resolve"
	"github.com/paveg/filmdash/internal/schema"
)

// View is the result of one filter pass. Movies is the filtered movie
// table; Genres and Cast hold the membership rows of the filtered titles.
type View struct {
	d      *Dashboard
	State  filter.State
	Movies *dataframe.DataFrame
	Genres *dataframe.DataFrame
	Cast   *dataframe.DataFrame
}

// Release releases the filtered tables.
func (v *View) Release() {
	v.Movies.Release()
	v.Genres.Release()
	v.Cast.Release()
}

// Chart wraps the data of one chart. An unavailable chart carries the
// reason instead of data; InsufficientData marks the explicit "not enough
// data" outcome.
type Chart[T any] struct {
	Available        bool   `json:"available"`
	InsufficientData bool   `json:"insufficient_data,omitempty"`
	Reason           string `json:"reason,omitempty"`
	Data             T      `json:"data"`
}

func chart[T any](data T, err error) Chart[T] {
	if err != nil {
		return Chart[T]{
			InsufficientData: errors.Is(err, dferrors.ErrInsufficientData),
			Reason:           err.Error(),
		}
	}
	return Chart[T]{Available: true, Data: data}
}

// Share is a value count with its fraction of the listed total.
type Share struct {
	Value string          `json:"value"`
	Count int             `json:"count"`
	Share aggregate.Float `json:"share"`
}

func shares(counts []aggregate.Count) []Share {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	out := make([]Share, len(counts))
	for i, c := range counts {
		out[i] = Share{Value: c.Value, Count: c.Count}
		if total > 0 {
			out[i].Share = aggregate.Float(float64(c.Count) / float64(total))
		}
	}
	return out
}

// Overview is the landing section.
type Overview struct {
	Metrics       aggregate.KeyMetrics `json:"metrics"`
	GenresCovered Chart[int]           `json:"genres_covered"`
	TopGenres     Chart[[]Share]       `json:"top_genres"`
	TopCast       Chart[[]Share]       `json:"top_cast"`
}

// Overview computes the key metrics and the most frequent genres and actors.
func (v *View) Overview() Overview {
	var out Overview
	v.measure(monitoring.StageAggregate, func() int {
		out.Metrics = aggregate.Describe(v.Movies)

		out.GenresCovered = chart(v.genresCovered())

		topN := v.d.cfg.OverviewTopN
		out.TopGenres = chart(v.topShares(v.Genres, schema.Genre, topN))
		out.TopCast = chart(v.topShares(v.Cast, schema.Cast, topN))
		return v.Movies.Len()
	})
	return out
}

func (v *View) genresCovered() (int, error) {
	if err := v.membership("Overview", v.Genres, schema.Genre); err != nil {
		return 0, err
	}
	genres, err := aggregate.ValueCounts(v.Genres, schema.Genre, 0)
	return len(genres), err
}

func (v *View) topShares(exploded *dataframe.DataFrame, column string, topN int) ([]Share, error) {
	if err := v.membership("Overview", exploded, column); err != nil {
		return nil, err
	}
	counts, err := aggregate.ValueCounts(exploded, column, topN)
	if err != nil {
		return nil, err
	}
	return shares(counts), nil
}

// GenreAnalysis is the genre section.
type GenreAnalysis struct {
	Counts       Chart[[]aggregate.Count]        `json:"counts"`
	MeanMetadata Chart[[]aggregate.GroupValue]   `json:"mean_metadata"`
	DurationBox  Chart[[]aggregate.GroupSummary] `json:"duration_box"`
	MetadataBox  Chart[[]aggregate.GroupSummary] `json:"metadata_box"`
	Heatmap      Chart[*aggregate.Pivot]         `json:"heatmap"`
}

// GenreAnalysis analyses the genre rows of the filtered movies. The section is
// unavailable when either table lacks a title or the genre table lacks a
// genre column.
func (v *View) GenreAnalysis() Chart[GenreAnalysis] {
	if err := v.membership("Genres", v.Genres, schema.Genre); err != nil {
		return chart(GenreAnalysis{}, err)
	}

	var out GenreAnalysis
	v.measure(monitoring.StageAggregate, func() int {
		cfg := v.d.cfg
		out.Counts = chart(aggregate.ValueCounts(v.Genres, schema.Genre, cfg.GenreTopN))
		out.MeanMetadata = chart(aggregate.GroupMean(v.Genres, schema.Genre, schema.Metadata, cfg.GenreTopN))

		top, err := aggregate.ValueCounts(v.Genres, schema.Genre, cfg.GenreBoxTopN)
		if err != nil {
			out.DurationBox = chart[[]aggregate.GroupSummary](nil, err)
			out.MetadataBox = chart[[]aggregate.GroupSummary](nil, err)
		} else {
			groups := aggregate.Values(top)
			out.DurationBox = chart(aggregate.BoxStats(v.Genres, schema.Genre, schema.Duration, groups))
			out.MetadataBox = chart(aggregate.BoxStats(v.Genres, schema.Genre, schema.Metadata, groups))
		}
		return v.Genres.Len()
	})
	out.Heatmap = chart(v.genreHeatmap())
	return chart(out, nil)
}

// genreHeatmap counts titles per (year, genre) over the filtered genre rows.
func (v *View) genreHeatmap() (*aggregate.Pivot, error) {
	if !schema.Has(v.Genres, schema.Title, schema.Genre) {
		return nil, dferrors.NewColumnNotFoundError("GenreHeatmap", schema.Genre)
	}
	withYear, err := v.attachYear(v.Genres)
	if err != nil {
		return nil, err
	}
	defer withYear.Release()

	var pivot *aggregate.Pivot
	v.measure(monitoring.StageAggregate, func() int {
		pivot, err = aggregate.PivotCount(withYear, schema.Year, schema.Genre, schema.Title)
		return withYear.Len()
	})
	return pivot, err
}

// Appearance is the number of filtered movies an actor appears in per year.
type Appearance struct {
	Year        int64  `json:"year"`
	Cast        string `json:"cast"`
	Appearances int    `json:"appearances"`
}

// CastAnalysis is the cast section.
type CastAnalysis struct {
	Counts       Chart[[]aggregate.Count]        `json:"counts"`
	MeanMetadata Chart[[]aggregate.GroupValue]   `json:"mean_metadata"`
	MetadataBox  Chart[[]aggregate.GroupSummary] `json:"metadata_box"`
	Appearances  Chart[[]Appearance]             `json:"appearances"`
}

// CastAnalysis analyses the cast rows of the filtered movies. The section is
// unavailable when either table lacks a title or the cast table lacks a cast
// column.
func (v *View) CastAnalysis() Chart[CastAnalysis] {
	if err := v.membership("Cast", v.Cast, schema.Cast); err != nil {
		return chart(CastAnalysis{}, err)
	}

	var out CastAnalysis
	var top []string
	v.measure(monitoring.StageAggregate, func() int {
		cfg := v.d.cfg
		out.Counts = chart(aggregate.ValueCounts(v.Cast, schema.Cast, cfg.CastTopN))
		out.MeanMetadata = chart(aggregate.GroupMean(v.Cast, schema.Cast, schema.Metadata, cfg.CastTopN))

		counts, err := aggregate.ValueCounts(v.Cast, schema.Cast, cfg.CastBoxTopN)
		if err != nil {
			out.MetadataBox = chart[[]aggregate.GroupSummary](nil, err)
			return v.Cast.Len()
		}
		top = aggregate.Values(counts)
		out.MetadataBox = chart(aggregate.BoxStats(v.Cast, schema.Cast, schema.Metadata, top))
		return v.Cast.Len()
	})
	out.Appearances = chart(v.appearances(top))
	return chart(out, nil)
}

// appearances counts per year the filtered movies of each actor in top.
func (v *View) appearances(top []string) ([]Appearance, error) {
	restricted, err := aggregate.Restrict(v.Cast, schema.Cast, top)
	if err != nil {
		return nil, err
	}
	defer restricted.Release()

	withYear, err := v.attachYear(restricted)
	if err != nil {
		return nil, err
	}
	defer withYear.Release()

	pivot, err := aggregate.PivotCount(withYear, schema.Year, schema.Cast, schema.Title)
	if err != nil {
		return nil, err
	}

	cells := pivot.Long()
	out := make([]Appearance, 0, len(cells))
	for _, cell := range cells {
		year, err := strconv.ParseFloat(cell.Row, 64)
		if err != nil {
			return nil, dferrors.NewUnsupportedTypeError("Appearances", schema.Year, cell.Row)
		}
		out = append(out, Appearance{Year: int64(year), Cast: cell.Column, Appearances: cell.Count})
	}
	return out, nil
}

// Trends is the yearly trends section, computed on the filtered movies.
type Trends struct {
	MoviesPerYear Chart[[]aggregate.YearValue] `json:"movies_per_year"`
	MeanDuration  Chart[[]aggregate.YearValue] `json:"mean_duration"`
	MeanMetadata  Chart[[]aggregate.YearValue] `json:"mean_metadata"`
	GenreHeatmap  Chart[*aggregate.Pivot]      `json:"genre_heatmap"`
}

// Trends computes the per-year series of the filtered movies.
func (v *View) Trends() Trends {
	var out Trends
	v.measure(monitoring.StageAggregate, func() int {
		out.MoviesPerYear = chart(aggregate.YearlyAggregate(v.Movies, "", aggregate.OpCount))
		out.MeanDuration = chart(aggregate.YearlyAggregate(v.Movies, schema.Duration, aggregate.OpMean))
		out.MeanMetadata = chart(aggregate.YearlyAggregate(v.Movies, schema.Metadata, aggregate.OpMean))
		return v.Movies.Len()
	})
	if !v.Movies.HasColumn(schema.Year) {
		out.GenreHeatmap = chart[*aggregate.Pivot](nil, dferrors.NewColumnNotFoundError("Trends", schema.Year))
		return out
	}
	out.GenreHeatmap = chart(v.genreHeatmap())
	return out
}

// ScatterPlot is one scatter chart. Color is empty when the colour column is
// absent.
type ScatterPlot struct {
	X      string            `json:"x"`
	Y      string            `json:"y"`
	Color  string            `json:"color,omitempty"`
	Points []aggregate.Point `json:"points"`
}

// ScatterPlots is the scatter section.
type ScatterPlots struct {
	MetadataByDuration Chart[ScatterPlot] `json:"metadata_by_duration"`
	MetadataByYear     Chart[ScatterPlot] `json:"metadata_by_year"`
	DurationByYear     Chart[ScatterPlot] `json:"duration_by_year"`
}

// Scatter pairs the numeric columns of the filtered movies, each plot
// coloured by the remaining column and labelled by title.
func (v *View) Scatter() ScatterPlots {
	var out ScatterPlots
	v.measure(monitoring.StageAggregate, func() int {
		out.MetadataByDuration = chart(v.scatter(schema.Duration, schema.Metadata, schema.Year))
		out.MetadataByYear = chart(v.scatter(schema.Year, schema.Metadata, schema.Duration))
		out.DurationByYear = chart(v.scatter(schema.Year, schema.Duration, schema.Metadata))
		return v.Movies.Len()
	})
	return out
}

func (v *View) scatter(x, y, color string) (ScatterPlot, error) {
	points, err := aggregate.Scatter(v.Movies, x, y, color, schema.Title)
	if err != nil {
		return ScatterPlot{}, err
	}
	plot := ScatterPlot{X: x, Y: y, Points: points}
	if v.Movies.HasColumn(color) {
		plot.Color = color
	}
	return plot, nil
}

// Correlation computes the correlation matrix of the numeric movie columns.
func (v *View) Correlation() Chart[*aggregate.Correlation] {
	var out Chart[*aggregate.Correlation]
	v.measure(monitoring.StageAggregate, func() int {
		out = chart(aggregate.CorrelationMatrix(v.Movies, schema.NumericColumns))
		return v.Movies.Len()
	})
	return out
}

// Table is the filtered movie table in display form.
type Table struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
	Truncated bool       `json:"truncated"`
}

// Table renders the filtered movies, limited to the configured row count.
func (v *View) Table() Table {
	total := v.Movies.Len()
	n := total
	if limit := v.d.cfg.TableRowsLimit; limit > 0 && limit < n {
		n = limit
	}
	table := Table{
		Columns:   v.Movies.Columns(),
		Rows:      make([][]string, n),
		TotalRows: total,
		Truncated: n < total,
	}
	for i := 0; i < n; i++ {
		table.Rows[i] = v.Movies.Row(i)
	}
	return table
}

// Export renders the filtered movies as CSV with every column, in table
// order.
func (v *View) Export() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.WriteTo(fio.NewCSVWriter(&buf, fio.DefaultCSVOptions())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the filtered movies through w.
func (v *View) WriteTo(w fio.DataWriter) error {
	return v.d.collector.RecordStage(monitoring.StageExport, func() (int, error) {
		return v.Movies.Len(), w.Write(v.Movies)
	})
}

// Report bundles every section of a view.
type Report struct {
	State       filter.State                  `json:"state"`
	Overview    Overview                      `json:"overview"`
	Genres      Chart[GenreAnalysis]          `json:"genres"`
	Cast        Chart[CastAnalysis]           `json:"cast"`
	Trends      Trends                        `json:"trends"`
	Scatter     ScatterPlots                  `json:"scatter"`
	Correlation Chart[*aggregate.Correlation] `json:"correlation"`
}

// Report computes every section.
func (v *View) Report() Report {
	return Report{
		State:       v.State,
		Overview:    v.Overview(),
		Genres:      v.GenreAnalysis(),
		Cast:        v.CastAnalysis(),
		Trends:      v.Trends(),
		Scatter:     v.Scatter(),
		Correlation: v.Correlation(),
	}
}

// membership checks the columns needed to relate exploded rows to the
// filtered movies.
func (v *View) membership(op string, exploded *dataframe.DataFrame, column string) error {
	if !schema.Has(v.Movies, schema.Title) {
		return dferrors.NewColumnNotFoundError(op, schema.Title)
	}
	for _, name := range []string{schema.Title, column} {
		if !schema.Has(exploded, name) {
			return dferrors.NewColumnNotFoundError(op, name)
		}
	}
	return nil
}

// attachYear resolves the year of exploded rows against the filtered movies.
func (v *View) attachYear(exploded *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	var result resolve.Result
	err := v.d.collector.RecordStage(monitoring.StageJoin, func() (int, error) {
		var err error
		result, err = resolve.AttachYear(exploded, v.Movies)
		if err != nil {
			return 0, err
		}
		return result.Frame.Len(), nil
	})
	if err != nil {
		return nil, err
	}
	if err := result.Err(); err != nil {
		v.d.logger.Debug().Err(err).Int("dropped", result.Dropped).Msg("rows without a resolvable year")
	}
	return result.Frame, nil
}

// measure times fn under stage. Section failures are reported through the
// charts, so the stage itself never fails.
func (v *View) measure(stage string, fn func() int) {
	_ = v.d.collector.RecordStage(stage, func() (int, error) {
		return fn(), nil
	})
}
