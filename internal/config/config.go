// Package config provides configuration management for the film dashboard
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Config represents the configuration of a dashboard process
type Config struct {
	// Source Configuration
	MoviesPath string `json:"movies_path" yaml:"movies_path"` // Movie-level CSV
	CastPath   string `json:"cast_path" yaml:"cast_path"`     // One row per movie/actor pair
	GenresPath string `json:"genres_path" yaml:"genres_path"` // One row per movie/genre pair
	CacheSize  int    `json:"cache_size" yaml:"cache_size"`   // Loaded tables kept in memory, keyed by path

	// Server Configuration
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"` // HTTP listen address

	// Dashboard Configuration
	OverviewTopN   int `json:"overview_top_n" yaml:"overview_top_n"`     // Genres/actors shown in the overview
	GenreTopN      int `json:"genre_top_n" yaml:"genre_top_n"`           // Genres in count and mean rankings
	GenreBoxTopN   int `json:"genre_box_top_n" yaml:"genre_box_top_n"`   // Genres in distribution plots
	CastTopN       int `json:"cast_top_n" yaml:"cast_top_n"`             // Actors in count and mean rankings
	CastBoxTopN    int `json:"cast_box_top_n" yaml:"cast_box_top_n"`     // Actors in distribution and appearance plots
	TableRowsLimit int `json:"table_rows_limit" yaml:"table_rows_limit"` // Rows returned by the table view (0 = all)

	// Filter Fallback Configuration, used when the movie table lacks a column
	FallbackYearMin     int64   `json:"fallback_year_min" yaml:"fallback_year_min"`
	FallbackYearMax     int64   `json:"fallback_year_max" yaml:"fallback_year_max"`
	FallbackMetadataMin float64 `json:"fallback_metadata_min" yaml:"fallback_metadata_min"`
	FallbackMetadataMax float64 `json:"fallback_metadata_max" yaml:"fallback_metadata_max"`

	// Logging Configuration
	LogLevel  string `json:"log_level" yaml:"log_level"`   // trace, debug, info, warn, error
	LogFormat string `json:"log_format" yaml:"log_format"` // json or console

	// Debugging Configuration
	MetricsCollection bool `json:"metrics_collection" yaml:"metrics_collection"` // Keep stage timings for /debug/stages
	MetricsHistory    int  `json:"metrics_history" yaml:"metrics_history"`       // Stage timings kept in memory
}

// Default configuration values
const (
	DefaultMoviesPath     = "data/movies.csv"
	DefaultCastPath       = "data/cast.csv"
	DefaultGenresPath     = "data/genres.csv"
	DefaultCacheSize      = 8
	DefaultListenAddr     = ":8080"
	DefaultOverviewTopN   = 15
	DefaultGenreTopN      = 20
	DefaultGenreBoxTopN   = 12
	DefaultCastTopN       = 20
	DefaultCastBoxTopN    = 15
	DefaultYearMin        = 1900
	DefaultYearMax        = 2025
	DefaultMetadataMin    = 0
	DefaultMetadataMax    = 100
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultMetricsHistory = 1024
)

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		MoviesPath: DefaultMoviesPath,
		CastPath:   DefaultCastPath,
		GenresPath: DefaultGenresPath,
		CacheSize:  DefaultCacheSize,

		ListenAddr: DefaultListenAddr,

		OverviewTopN:   DefaultOverviewTopN,
		GenreTopN:      DefaultGenreTopN,
		GenreBoxTopN:   DefaultGenreBoxTopN,
		CastTopN:       DefaultCastTopN,
		CastBoxTopN:    DefaultCastBoxTopN,
		TableRowsLimit: 0, // All rows

		FallbackYearMin:     DefaultYearMin,
		FallbackYearMax:     DefaultYearMax,
		FallbackMetadataMin: DefaultMetadataMin,
		FallbackMetadataMax: DefaultMetadataMax,

		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,

		MetricsCollection: false,
		MetricsHistory:    DefaultMetricsHistory,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.MoviesPath == "" {
		return fmt.Errorf("MoviesPath must be set")
	}
	if c.CastPath == "" {
		return fmt.Errorf("CastPath must be set")
	}
	if c.GenresPath == "" {
		return fmt.Errorf("GenresPath must be set")
	}

	if c.CacheSize <= 0 {
		return fmt.Errorf("CacheSize must be positive, got %d", c.CacheSize)
	}

	for name, v := range map[string]int{
		"OverviewTopN": c.OverviewTopN,
		"GenreTopN":    c.GenreTopN,
		"GenreBoxTopN": c.GenreBoxTopN,
		"CastTopN":     c.CastTopN,
		"CastBoxTopN":  c.CastBoxTopN,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}

	if c.TableRowsLimit < 0 {
		return fmt.Errorf("TableRowsLimit must be non-negative, got %d", c.TableRowsLimit)
	}

	if c.FallbackYearMin > c.FallbackYearMax {
		return fmt.Errorf("FallbackYearMin (%d) must not exceed FallbackYearMax (%d)",
			c.FallbackYearMin, c.FallbackYearMax)
	}

	if c.FallbackMetadataMin > c.FallbackMetadataMax {
		return fmt.Errorf("FallbackMetadataMin (%g) must not exceed FallbackMetadataMax (%g)",
			c.FallbackMetadataMin, c.FallbackMetadataMax)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LogFormat must be json or console, got %q", c.LogFormat)
	}

	if c.MetricsHistory < 0 {
		return fmt.Errorf("MetricsHistory must be non-negative, got %d", c.MetricsHistory)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.MoviesPath == "" {
		c.MoviesPath = defaults.MoviesPath
	}
	if c.CastPath == "" {
		c.CastPath = defaults.CastPath
	}
	if c.GenresPath == "" {
		c.GenresPath = defaults.GenresPath
	}
	if c.CacheSize == 0 {
		c.CacheSize = defaults.CacheSize
	}
	if c.ListenAddr == "" {
		c.ListenAddr = defaults.ListenAddr
	}
	if c.OverviewTopN == 0 {
		c.OverviewTopN = defaults.OverviewTopN
	}
	if c.GenreTopN == 0 {
		c.GenreTopN = defaults.GenreTopN
	}
	if c.GenreBoxTopN == 0 {
		c.GenreBoxTopN = defaults.GenreBoxTopN
	}
	if c.CastTopN == 0 {
		c.CastTopN = defaults.CastTopN
	}
	if c.CastBoxTopN == 0 {
		c.CastBoxTopN = defaults.CastBoxTopN
	}
	if c.FallbackYearMin == 0 && c.FallbackYearMax == 0 {
		c.FallbackYearMin = defaults.FallbackYearMin
		c.FallbackYearMax = defaults.FallbackYearMax
	}
	if c.FallbackMetadataMin == 0 && c.FallbackMetadataMax == 0 {
		c.FallbackMetadataMin = defaults.FallbackMetadataMin
		c.FallbackMetadataMax = defaults.FallbackMetadataMax
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}
	if c.MetricsHistory == 0 {
		c.MetricsHistory = defaults.MetricsHistory
	}

	// Note: Boolean fields are intentionally not set to defaults here
	// This allows distinguishing between explicitly set false and unset values

	return c
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON and YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "FILMDASH_"

// LoadFromEnv loads configuration from environment variables on top of
// base. Unparseable values are ignored.
func LoadFromEnv(base Config) Config {
	config := base

	stringVars := map[string]*string{
		"MOVIES_PATH": &config.MoviesPath,
		"CAST_PATH":   &config.CastPath,
		"GENRES_PATH": &config.GenresPath,
		"LISTEN_ADDR": &config.ListenAddr,
		"LOG_LEVEL":   &config.LogLevel,
		"LOG_FORMAT":  &config.LogFormat,
	}
	for key, target := range stringVars {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			*target = val
		}
	}

	intVars := map[string]*int{
		"CACHE_SIZE":       &config.CacheSize,
		"OVERVIEW_TOP_N":   &config.OverviewTopN,
		"GENRE_TOP_N":      &config.GenreTopN,
		"GENRE_BOX_TOP_N":  &config.GenreBoxTopN,
		"CAST_TOP_N":       &config.CastTopN,
		"CAST_BOX_TOP_N":   &config.CastBoxTopN,
		"TABLE_ROWS_LIMIT": &config.TableRowsLimit,
		"METRICS_HISTORY":  &config.MetricsHistory,
	}
	for key, target := range intVars {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			if parsed, err := strconv.Atoi(val); err == nil {
				*target = parsed
			}
		}
	}

	int64Vars := map[string]*int64{
		"FALLBACK_YEAR_MIN": &config.FallbackYearMin,
		"FALLBACK_YEAR_MAX": &config.FallbackYearMax,
	}
	for key, target := range int64Vars {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
				*target = parsed
			}
		}
	}

	floatVars := map[string]*float64{
		"FALLBACK_METADATA_MIN": &config.FallbackMetadataMin,
		"FALLBACK_METADATA_MAX": &config.FallbackMetadataMax,
	}
	for key, target := range floatVars {
		if val := os.Getenv(EnvPrefix + key); val != "" {
			if parsed, err := strconv.ParseFloat(val, 64); err == nil {
				*target = parsed
			}
		}
	}

	if val := os.Getenv(EnvPrefix + "METRICS_COLLECTION"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.MetricsCollection = parsed
		}
	}

	return config
}
