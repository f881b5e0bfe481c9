package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/paveg/filmdash/internal/dashboard"
	dferrors "github.com/paveg/filmdash/internal/errors"
	"github.com/paveg/filmdash/internal/version"
)

// ExportFilename is suggested to clients downloading the filtered table.
const ExportFilename = "filmdash_filtered.csv"

// withView filters the dashboard with the request's parameters and passes
// the view to fn. Malformed parameters are answered with 400.
func (s *Server) withView(w http.ResponseWriter, r *http.Request, fn func(*dashboard.View)) {
	state, problems := ParseFilter(r.URL.Query(), s.dashboard.Defaults())
	if problems != nil {
		s.fail(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "invalid filter parameters", problems)
		return
	}

	view, err := s.dashboard.Filter(state)
	if err != nil {
		if errors.Is(err, dferrors.ErrInvalidInput) {
			s.fail(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
			return
		}
		s.logger.Error().Err(err).Msg("filter failed")
		s.fail(w, r, http.StatusInternalServerError, ErrCodeInternalError, "filter failed", nil)
		return
	}
	defer view.Release()

	fn(view)
}

// Health reports liveness and the size of the loaded movie table.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	movies := 0
	if m := s.dashboard.Tables().Movies; m != nil {
		movies = m.Len()
	}
	s.success(w, map[string]any{
		"status":  "ok",
		"version": version.Info(),
		"release": version.IsRelease(),
		"movies":  movies,
	})
}

// Stages returns the stage timings kept by the collector.
func (s *Server) Stages(w http.ResponseWriter, r *http.Request) {
	collector := s.dashboard.Collector()
	s.success(w, map[string]any{
		"enabled": collector.IsEnabled(),
		"summary": collector.GetSummary(),
		"stages":  collector.GetMetrics(),
	})
}

// Options returns the selectable values and the default filter state.
func (s *Server) Options(w http.ResponseWriter, r *http.Request) {
	s.success(w, s.dashboard.Options())
}

// Overview returns the overview section.
func (s *Server) Overview(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, func(v *dashboard.View) {
		s.success(w, v.Overview())
	})
}

// Genres returns the genre section.
func (s *Server) Genres(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, func(v *dashboard.View) {
		s.success(w, v.GenreAnalysis())
	})
}

// Cast returns the cast section.
func (s *Server) Cast(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, func(v *dashboard.View) {
		s.success(w, v.CastAnalysis())
	})
}

// Trends returns the yearly trends section.
func (s *Server) Trends(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, func(v *dashboard.View) {
		s.success(w, v.Trends())
	})
}

// Scatter returns the scatter section.
func (s *Server) Scatter(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, func(v *dashboard.View) {
		s.success(w, v.Scatter())
	})
}

// Correlation returns the correlation matrix or the insufficient-data
// result.
func (s *Server) Correlation(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, func(v *dashboard.View) {
		s.success(w, v.Correlation())
	})
}

// Table returns the filtered movie table.
func (s *Server) Table(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, func(v *dashboard.View) {
		s.success(w, v.Table())
	})
}

// Report returns every section at once.
func (s *Server) Report(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, func(v *dashboard.View) {
		s.success(w, v.Report())
	})
}

// Export returns the filtered movie table as CSV.
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	s.withView(w, r, func(v *dashboard.View) {
		data, err := v.Export()
		if err != nil {
			s.logger.Error().Err(err).Msg("export failed")
			s.fail(w, r, http.StatusInternalServerError, ErrCodeInternalError, "export failed", nil)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			s.logger.Debug().Err(err).Msg("failed to write export")
		}
	})
}
