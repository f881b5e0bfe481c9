// Package loader reads the three source tables from CSV, caching each
// table by path so repeated loads skip the disk.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/paveg/filmdash/internal/dataframe"
	dferrors "github.com/paveg/filmdash/internal/errors"
	fio "github.com/paveg/filmdash/internal/io"
	"github.com/paveg/filmdash/internal/logging"
	"github.com/paveg/filmdash/internal/monitoring"
	"github.com/paveg/filmdash/internal/schema"
)

var errNoHeader = errors.New("file has no header row")

// entry is a cached table together with the file state it was read from.
type entry struct {
	frame   *dataframe.DataFrame
	modTime time.Time
	size    int64
}

// Paths locates the three source files.
type Paths struct {
	Movies string
	Cast   string
	Genres string
}

// ReaderFunc builds the reader used to parse one source file.
type ReaderFunc func(r io.Reader, mem memory.Allocator) fio.DataReader

// Option configures a Loader.
type Option func(*Loader)

// WithReader replaces the default CSV reader.
func WithReader(fn ReaderFunc) Option {
	return func(l *Loader) {
		l.newReader = fn
	}
}

func csvReader(r io.Reader, mem memory.Allocator) fio.DataReader {
	return fio.NewCSVReader(r, fio.DefaultCSVOptions(), mem)
}

// Loader reads CSV tables through a path-keyed LRU cache. A cached table is
// reread when the file's size or modification time changes. Concurrent loads
// of one path share a single read.
type Loader struct {
	// mu guards against eviction between a cache lookup and taking a
	// reference to the cached frame.
	mu        sync.RWMutex
	cache     *lru.Cache[string, entry]
	group     singleflight.Group
	mem       memory.Allocator
	newReader ReaderFunc
	logger    zerolog.Logger
}

// New returns a Loader caching up to size tables.
func New(size int, mem memory.Allocator, opts ...Option) (*Loader, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	cache, err := lru.NewWithEvict[string, entry](size, func(_ string, e entry) {
		e.frame.Release()
	})
	if err != nil {
		return nil, fmt.Errorf("creating table cache: %w", err)
	}
	l := &Loader{
		cache:     cache,
		mem:       mem,
		newReader: csvReader,
		logger:    logging.Component("loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Load returns the table at path. The caller owns the returned DataFrame
// and must release it; the cached copy is unaffected.
func (l *Loader) Load(ctx context.Context, path string) (*dataframe.DataFrame, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, dferrors.NewLoadError(path, err)
	}

	if df, ok := l.lookup(path, info); ok {
		monitoring.RecordSourceCache(true)
		return df, nil
	}

	ch := l.group.DoChan(path, func() (any, error) {
		monitoring.RecordSourceCache(false)
		start := time.Now()

		df, err := l.read(path)
		if err == nil && df.Width() == 0 {
			df.Release()
			err = errNoHeader
		}
		monitoring.ObserveStage(monitoring.StageLoad, time.Since(start), err)
		if err != nil {
			return nil, dferrors.NewLoadError(path, err)
		}

		l.logger.Info().
			Str("path", path).
			Int("rows", df.Len()).
			Int("columns", df.Width()).
			Dur("elapsed", time.Since(start)).
			Msg("source table loaded")

		l.mu.Lock()
		// Add does not evict an entry it overwrites.
		l.cache.Remove(path)
		l.cache.Add(path, entry{frame: df, modTime: info.ModTime(), size: info.Size()})
		l.mu.Unlock()
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// The cache holds the only reference from the shared read; every
		// caller takes its own from there.
		if df, ok := l.lookup(path, nil); ok {
			return df, nil
		}
		return l.Load(ctx, path)
	}
}

func (l *Loader) read(path string) (*dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return l.newReader(f, l.mem).Read()
}

// lookup returns a new reference to the cached table at path. A non-nil info
// also requires the entry to match the file's current state.
func (l *Loader) lookup(path string, info os.FileInfo) (*dataframe.DataFrame, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.cache.Get(path)
	if !ok || (info != nil && !fresh(e, info)) {
		return nil, false
	}
	return share(e.frame), true
}

// LoadTables loads the three source tables concurrently. Any failure
// cancels the remaining loads and releases what was already read.
func (l *Loader) LoadTables(ctx context.Context, paths Paths) (schema.Tables, error) {
	var tables schema.Tables
	g, gctx := errgroup.WithContext(ctx)

	targets := []struct {
		path string
		dst  **dataframe.DataFrame
	}{
		{paths.Movies, &tables.Movies},
		{paths.Cast, &tables.Cast},
		{paths.Genres, &tables.Genres},
	}
	for _, target := range targets {
		g.Go(func() error {
			df, err := l.Load(gctx, target.path)
			if err != nil {
				return err
			}
			*target.dst = df
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		tables.Release()
		return schema.Tables{}, err
	}

	monitoring.SourceRows.WithLabelValues("movies").Set(float64(tables.Movies.Len()))
	monitoring.SourceRows.WithLabelValues("cast").Set(float64(tables.Cast.Len()))
	monitoring.SourceRows.WithLabelValues("genres").Set(float64(tables.Genres.Len()))
	return tables, nil
}

// Purge drops every cached table.
func (l *Loader) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Purge()
}

// Cached reports how many tables are cached.
func (l *Loader) Cached() int {
	return l.cache.Len()
}

func fresh(e entry, info os.FileInfo) bool {
	return e.size == info.Size() && e.modTime.Equal(info.ModTime())
}

func share(df *dataframe.DataFrame) *dataframe.DataFrame {
	return df.Select(df.Columns()...)
}
