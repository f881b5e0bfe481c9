package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/paveg/filmdash/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DefaultValues(t *testing.T) {
	cfg := config.NewConfig()

	assert.Equal(t, "data/movies.csv", cfg.MoviesPath)
	assert.Equal(t, 8, cfg.CacheSize)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 15, cfg.OverviewTopN)
	assert.Equal(t, 20, cfg.GenreTopN)
	assert.Equal(t, 12, cfg.GenreBoxTopN)
	assert.Equal(t, 20, cfg.CastTopN)
	assert.Equal(t, 15, cfg.CastBoxTopN)
	assert.Equal(t, int64(1900), cfg.FallbackYearMin)
	assert.Equal(t, int64(2025), cfg.FallbackYearMax)
	assert.InDelta(t, 0.0, cfg.FallbackMetadataMin, 0.001)
	assert.InDelta(t, 100.0, cfg.FallbackMetadataMax, 0.001)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.MetricsCollection)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name          string
		modify        func(*config.Config)
		expectedError string
	}{
		{
			name:          "valid config",
			modify:        func(*config.Config) {},
			expectedError: "",
		},
		{
			name:          "missing movies path",
			modify:        func(c *config.Config) { c.MoviesPath = "" },
			expectedError: "MoviesPath must be set",
		},
		{
			name:          "zero cache size",
			modify:        func(c *config.Config) { c.CacheSize = 0 },
			expectedError: "CacheSize must be positive, got 0",
		},
		{
			name:          "negative top n",
			modify:        func(c *config.Config) { c.GenreTopN = -1 },
			expectedError: "GenreTopN must be positive, got -1",
		},
		{
			name:          "inverted year fallback",
			modify:        func(c *config.Config) { c.FallbackYearMin = 2030 },
			expectedError: "FallbackYearMin (2030) must not exceed FallbackYearMax (2025)",
		},
		{
			name:          "inverted metadata fallback",
			modify:        func(c *config.Config) { c.FallbackMetadataMax = -1 },
			expectedError: "FallbackMetadataMin (0) must not exceed FallbackMetadataMax (-1)",
		},
		{
			name:          "unknown log format",
			modify:        func(c *config.Config) { c.LogFormat = "xml" },
			expectedError: `LogFormat must be json or console, got "xml"`,
		},
		{
			name:          "negative table limit",
			modify:        func(c *config.Config) { c.TableRowsLimit = -5 },
			expectedError: "TableRowsLimit must be non-negative, got -5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.expectedError == "" {
				require.NoError(t, err)
			} else {
				require.EqualError(t, err, tt.expectedError)
			}
		})
	}
}

func TestConfig_LoadFromJSON(t *testing.T) {
	cfg, err := config.LoadFromJSON([]byte(`{"movies_path": "m.csv", "cast_top_n": 5, "metrics_collection": true}`))
	require.NoError(t, err)

	assert.Equal(t, "m.csv", cfg.MoviesPath)
	assert.Equal(t, 5, cfg.CastTopN)
	assert.True(t, cfg.MetricsCollection)
	assert.Equal(t, config.DefaultCastPath, cfg.CastPath, "unset fields take defaults")
	assert.Equal(t, config.DefaultGenreTopN, cfg.GenreTopN)
}

func TestConfig_InvalidJSON(t *testing.T) {
	_, err := config.LoadFromJSON([]byte(`{"movies_path": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing JSON configuration")
}

func TestConfig_LoadFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "filmdash.json")
		data, err := json.Marshal(map[string]any{"genres_path": "g.csv", "log_format": "console"})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o600))

		cfg, err := config.LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "g.csv", cfg.GenresPath)
		assert.Equal(t, "console", cfg.LogFormat)
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "filmdash.yaml")
		content := "movies_path: /data/clean.csv\n" +
			"listen_addr: 127.0.0.1:9000\n" +
			"fallback_year_min: 1950\n" +
			"fallback_year_max: 2000\n" +
			"log_level: debug\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := config.LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "/data/clean.csv", cfg.MoviesPath)
		assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
		assert.Equal(t, int64(1950), cfg.FallbackYearMin)
		assert.Equal(t, int64(2000), cfg.FallbackYearMax)
		assert.Equal(t, "debug", cfg.LogLevel)
		require.NoError(t, cfg.Validate())
	})

	t.Run("unsupported format", func(t *testing.T) {
		path := filepath.Join(dir, "filmdash.toml")
		require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o600))

		_, err := config.LoadFromFile(path)
		require.EqualError(t, err, "unsupported config file format: .toml")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadFromFile(filepath.Join(dir, "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading config file")
	})
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("FILMDASH_MOVIES_PATH", "/env/movies.csv")
	t.Setenv("FILMDASH_CAST_TOP_N", "7")
	t.Setenv("FILMDASH_FALLBACK_YEAR_MIN", "1970")
	t.Setenv("FILMDASH_FALLBACK_METADATA_MAX", "10")
	t.Setenv("FILMDASH_METRICS_COLLECTION", "true")
	t.Setenv("FILMDASH_GENRE_TOP_N", "not_a_number")

	cfg := config.LoadFromEnv(config.NewConfig())

	assert.Equal(t, "/env/movies.csv", cfg.MoviesPath)
	assert.Equal(t, 7, cfg.CastTopN)
	assert.Equal(t, int64(1970), cfg.FallbackYearMin)
	assert.InDelta(t, 10.0, cfg.FallbackMetadataMax, 0.001)
	assert.True(t, cfg.MetricsCollection)
	assert.Equal(t, config.DefaultGenreTopN, cfg.GenreTopN, "invalid values are ignored")
}

func TestConfig_WithDefaults(t *testing.T) {
	partial := config.Config{MoviesPath: "only.csv", MetricsCollection: true}
	cfg := partial.WithDefaults()

	assert.Equal(t, "only.csv", cfg.MoviesPath)
	assert.Equal(t, config.DefaultCastPath, cfg.CastPath)
	assert.Equal(t, config.DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, int64(config.DefaultYearMax), cfg.FallbackYearMax)
	assert.True(t, cfg.MetricsCollection)
	require.NoError(t, cfg.Validate())
}
