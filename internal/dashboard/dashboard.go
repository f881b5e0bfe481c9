// Package dashboard runs the per-interaction pipeline behind every view.
//
// A Dashboard owns the prepared base tables. Each interaction filters them
// once into a View, and every section of the View is computed from that
// filtered selection. Sections never fail: a chart whose inputs are missing
// is reported as unavailable together with the reason.
package dashboard

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/paveg/filmdash/internal/config"
	"github.com/paveg/filmdash/internal/dataframe"
	"github.com/paveg/filmdash/internal/filter"
	"github.com/paveg/filmdash/internal/impute"
	"github.com/paveg/filmdash/internal/logging"
	"github.com/paveg/filmdash/internal/monitoring"
	"github.com/paveg/filmdash/internal/schema"
)

// Dashboard holds the prepared tables and the settings shared by every view.
// It is safe for concurrent use once New returns.
type Dashboard struct {
	tables    schema.Tables
	reports   map[string]*impute.Report
	cfg       config.Config
	collector *monitoring.Collector
	defaults  filter.State
	options   filter.Options
	logger    zerolog.Logger
}

// Choices describes what a client may select and the unrestricted state.
type Choices struct {
	Filters  filter.Options `json:"filters"`
	Defaults filter.State   `json:"defaults"`
}

// New normalizes and imputes tables once and derives the default filter
// state. tables is not modified and stays owned by the caller. collector may
// be nil.
func New(tables schema.Tables, cfg config.Config, collector *monitoring.Collector) (*Dashboard, error) {
	cfg = cfg.WithDefaults()
	d := &Dashboard{
		cfg:       cfg,
		collector: collector,
		logger:    logging.Component("dashboard"),
	}

	err := collector.RecordStage(monitoring.StagePrepare, func() (int, error) {
		prepared, reports, err := impute.PrepareTables(tables)
		if err != nil {
			return 0, err
		}
		d.tables = prepared
		d.reports = reports
		return rowCount(prepared.Movies), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare tables: %w", err)
	}
	d.logReports()

	d.defaults = filter.Defaults(d.tables.Movies, filter.Fallback{
		YearRange:     filter.IntRange{Min: cfg.FallbackYearMin, Max: cfg.FallbackYearMax},
		MetadataRange: filter.Range{Min: cfg.FallbackMetadataMin, Max: cfg.FallbackMetadataMax},
	})
	d.options = filter.AvailableOptions(d.tables)
	return d, nil
}

func (d *Dashboard) logReports() {
	for _, name := range []string{"movies", "cast", "genres"} {
		report, ok := d.reports[name]
		if !ok {
			d.logger.Warn().Str("table", name).Msg("table not provided")
			continue
		}
		for _, col := range report.Columns {
			event := d.logger.Info()
			if col.NoObservations {
				event = d.logger.Warn()
			}
			event.
				Err(col.Err()).
				Str("table", name).
				Str("column", col.Column).
				Int("unparseable", col.Unparseable).
				Int("filled", col.Filled).
				Float64("fill_value", col.FillValue).
				Bool("no_observations", col.NoObservations).
				Msg("imputed numeric column")
		}
	}
}

// Close releases the prepared tables. Views created earlier must be
// released first.
func (d *Dashboard) Close() {
	d.tables.Release()
}

// Tables returns the prepared base tables. They must not be released.
func (d *Dashboard) Tables() schema.Tables {
	return d.tables
}

// Reports returns the imputation report of each prepared table.
func (d *Dashboard) Reports() map[string]*impute.Report {
	return d.reports
}

// Config returns the effective configuration.
func (d *Dashboard) Config() config.Config {
	return d.cfg
}

// Collector returns the stage collector, possibly nil.
func (d *Dashboard) Collector() *monitoring.Collector {
	return d.collector
}

// Defaults returns the unrestricted filter state.
func (d *Dashboard) Defaults() filter.State {
	state := d.defaults
	state.Genres = []string{}
	state.CastMembers = []string{}
	return state
}

// Options returns the selectable genres and cast members and the default
// state.
func (d *Dashboard) Options() Choices {
	return Choices{
		Filters:  d.options,
		Defaults: d.Defaults(),
	}
}

// Filter applies state to the base tables. The returned View must be
// released by the caller.
func (d *Dashboard) Filter(state filter.State) (*View, error) {
	var movies *dataframe.DataFrame
	err := d.collector.RecordStage(monitoring.StageFilter, func() (int, error) {
		var err error
		movies, err = filter.Apply(d.tables, state)
		if err != nil {
			return 0, err
		}
		return movies.Len(), nil
	})
	if err != nil {
		return nil, err
	}

	d.logger.Debug().
		Int64("year_min", state.YearRange.Min).
		Int64("year_max", state.YearRange.Max).
		Float64("meta_min", state.MetadataRange.Min).
		Float64("meta_max", state.MetadataRange.Max).
		Strs("genres", state.Genres).
		Strs("cast", state.CastMembers).
		Int("movies", movies.Len()).
		Msg("filter applied")

	return &View{
		d:      d,
		State:  state,
		Movies: movies,
		Genres: filter.Members(d.tables.Genres, movies),
		Cast:   filter.Members(d.tables.Cast, movies),
	}, nil
}

func rowCount(df *dataframe.DataFrame) int {
	if df == nil {
		return 0
	}
	return df.Len()
}
