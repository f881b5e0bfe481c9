// Package api exposes the dashboard sections and the CSV export over HTTP.
//
// Every data endpoint accepts the filter parameters year_min, year_max,
// meta_min, meta_max and the repeatable genre and cast. Unspecified
// parameters take the dashboard defaults.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/paveg/filmdash/internal/dashboard"
	"github.com/paveg/filmdash/internal/logging"
)

// Server serves one Dashboard.
type Server struct {
	dashboard *dashboard.Dashboard
	logger    zerolog.Logger
}

// NewServer creates a server for d.
func NewServer(d *dashboard.Dashboard) *Server {
	return &Server{
		dashboard: d,
		logger:    logging.Component("api"),
	}
}

// Router configures all HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(serverHeader)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/debug/stages", s.Stages)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(prometheusMetrics)

		r.Get("/options", s.Options)
		r.Get("/overview", s.Overview)
		r.Get("/genres", s.Genres)
		r.Get("/cast", s.Cast)
		r.Get("/trends", s.Trends)
		r.Get("/scatter", s.Scatter)
		r.Get("/correlation", s.Correlation)
		r.Get("/table", s.Table)
		r.Get("/report", s.Report)

		r.Get("/export.csv", s.Export)
		r.Get("/table/export.csv", s.Export)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, http.StatusNotFound, ErrCodeNotFound, "no such endpoint", nil)
	})

	return r
}
