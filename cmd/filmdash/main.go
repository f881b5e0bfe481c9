package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	"github.com/paveg/filmdash/internal/api"
	"github.com/paveg/filmdash/internal/config"
	"github.com/paveg/filmdash/internal/dashboard"
	fio "github.com/paveg/filmdash/internal/io"
	"github.com/paveg/filmdash/internal/loader"
	"github.com/paveg/filmdash/internal/logging"
	"github.com/paveg/filmdash/internal/monitoring"
	"github.com/paveg/filmdash/internal/schema"
	"github.com/paveg/filmdash/internal/version"
)

const shutdownTimeout = 10 * time.Second

func customUsage(flags *flag.FlagSet) func() {
	return func() {
		out := flags.Output()
		fmt.Fprintf(out, "filmdash film analytics (version %s)\n\n", version.Version)
		fmt.Fprintf(out, "Usage: filmdash [options]\n\n")
		fmt.Fprintf(out, "Modes:\n")
		fmt.Fprintf(out, "  -serve\n\t\tServe the HTTP API on the configured listen address\n")
		fmt.Fprintf(out, "  -export FILE\n\t\tWrite the filtered movie table as CSV (- for stdout)\n")
		fmt.Fprintf(out, "  -summary\n\t\tPrint every dashboard section as JSON\n")
		fmt.Fprintf(out, "  -v, -version\n\t\tPrint version information and exit\n")
		fmt.Fprintf(out, "\nSources:\n")
		fmt.Fprintf(out, "  -config FILE\n\t\tYAML or JSON configuration file\n")
		fmt.Fprintf(out, "  -env FILE\n\t\tDotenv file with FILMDASH_* variables (default: .env)\n")
		fmt.Fprintf(out, "  -movies FILE, -cast-table FILE, -genres FILE\n\t\tOverride the source CSV paths\n")
		fmt.Fprintf(out, "\nFilters (export and summary):\n")
		fmt.Fprintf(out, "  -year-min N, -year-max N\n\t\tInclusive year range\n")
		fmt.Fprintf(out, "  -meta-min X, -meta-max X\n\t\tInclusive metadata range\n")
		fmt.Fprintf(out, "  -genre NAME, -cast NAME\n\t\tRepeatable membership filters\n")
	}
}

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(value string) error {
	*l = append(*l, value)
	return nil
}

type options struct {
	showVersion bool
	serve       bool
	export      string
	summary     bool

	configFile string
	envFile    string
	movies     string
	cast       string
	genres     string

	query url.Values
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	flags := flag.NewFlagSet("filmdash", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = customUsage(flags)

	flags.BoolVar(&opts.showVersion, "v", false, "Print version and exit")
	flags.BoolVar(&opts.showVersion, "version", false, "Print version and exit") // alias
	flags.BoolVar(&opts.serve, "serve", false, "Serve the HTTP API")
	flags.StringVar(&opts.export, "export", "", "Write the filtered movie table as CSV")
	flags.BoolVar(&opts.summary, "summary", false, "Print every dashboard section as JSON")

	flags.StringVar(&opts.configFile, "config", "", "Configuration file")
	flags.StringVar(&opts.envFile, "env", ".env", "Dotenv file")
	flags.StringVar(&opts.movies, "movies", "", "Movie CSV path")
	flags.StringVar(&opts.cast, "cast-table", "", "Cast CSV path")
	flags.StringVar(&opts.genres, "genres", "", "Genre CSV path")

	yearMin := flags.String("year-min", "", "Minimum year")
	yearMax := flags.String("year-max", "", "Maximum year")
	metaMin := flags.String("meta-min", "", "Minimum metadata")
	metaMax := flags.String("meta-max", "", "Maximum metadata")
	var genre, cast listFlag
	flags.Var(&genre, "genre", "Genre filter (repeatable)")
	flags.Var(&cast, "cast", "Cast filter (repeatable)")

	if err := flags.Parse(args); err != nil {
		return opts, err
	}

	// Filter flags mirror the API query parameters so both share one parser.
	opts.query = url.Values{}
	for param, value := range map[string]string{
		"year_min": *yearMin,
		"year_max": *yearMax,
		"meta_min": *metaMin,
		"meta_max": *metaMax,
	} {
		if value != "" {
			opts.query.Set(param, value)
		}
	}
	opts.query["genre"] = genre
	opts.query["cast"] = cast

	if !opts.showVersion && !opts.serve && opts.export == "" && !opts.summary {
		flags.Usage()
		return opts, errors.New("no mode selected")
	}
	if opts.export == "-" && opts.summary {
		return opts, errors.New("-export - and -summary both write to stdout")
	}
	return opts, nil
}

func loadConfig(opts options) (config.Config, error) {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, fmt.Errorf("failed to load %s: %w", opts.envFile, err)
	}

	cfg := config.NewConfig()
	if opts.configFile != "" {
		loaded, err := config.LoadFromFile(opts.configFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	cfg = config.LoadFromEnv(cfg)

	if opts.movies != "" {
		cfg.MoviesPath = opts.movies
	}
	if opts.cast != "" {
		cfg.CastPath = opts.cast
	}
	if opts.genres != "" {
		cfg.GenresPath = opts.genres
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprint(stdout, version.Info().String())
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: stderr})
	logger := logging.Component("main")

	collector := monitoring.NewCollector(cfg.MetricsCollection, cfg.MetricsHistory)
	l, err := loader.New(cfg.CacheSize, nil)
	if err != nil {
		return err
	}
	defer l.Purge()

	var tables schema.Tables
	err = collector.RecordStage(monitoring.StageLoad, func() (int, error) {
		var err error
		tables, err = l.LoadTables(ctx, loader.Paths{
			Movies: cfg.MoviesPath,
			Cast:   cfg.CastPath,
			Genres: cfg.GenresPath,
		})
		if err != nil {
			return 0, err
		}
		return tables.Movies.Len(), nil
	})
	if err != nil {
		return err
	}

	d, err := dashboard.New(tables, cfg, collector)
	tables.Release()
	if err != nil {
		return err
	}
	defer d.Close()

	logger.Info().
		Int("movies", d.Tables().Movies.Len()).
		Str("version", version.Version).
		Msg("dashboard ready")

	if opts.serve {
		return serve(ctx, d)
	}

	state, problems := api.ParseFilter(opts.query, d.Defaults())
	if problems != nil {
		details, _ := json.Marshal(problems)
		return fmt.Errorf("invalid filter flags: %s", details)
	}
	view, err := d.Filter(state)
	if err != nil {
		return err
	}
	defer view.Release()

	if opts.export != "" {
		if err := writeExport(opts.export, view, stdout); err != nil {
			return err
		}
		logger.Info().
			Str("path", opts.export).
			Int("rows", view.Movies.Len()).
			Msg("exported filtered movies")
	}

	if opts.summary {
		data, err := json.MarshalIndent(view.Report(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
	}
	return nil
}

func writeExport(path string, view *dashboard.View, stdout io.Writer) error {
	if path == "-" {
		return view.WriteTo(fio.NewCSVWriter(stdout, fio.DefaultCSVOptions()))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export: %w", err)
	}
	if err := view.WriteTo(fio.NewCSVWriter(f, fio.DefaultCSVOptions())); err != nil {
		f.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	return f.Close()
}

func serve(ctx context.Context, d *dashboard.Dashboard) error {
	logger := logging.Component("server")
	cfg := d.Config()
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(d).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logging.Error().Err(err).Msg("filmdash failed")
		stop()
		os.Exit(1)
	}
}
