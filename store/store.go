package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spektr-org/crimescope/cache"
	"github.com/spektr-org/crimescope/engine"
	"github.com/spektr-org/crimescope/helpers"
	"github.com/spektr-org/crimescope/metrics"
	"github.com/spektr-org/crimescope/schema"
)

// ============================================================================
// STORE — Owns the current snapshot and its replacement
// ============================================================================
// Readers grab the current *engine.Snapshot with one atomic load and keep
// using it for the whole query, so a concurrent Reload never changes the
// data under a running report. Reload builds the next snapshot off to the
// side and swaps the pointer; a failed load keeps the previous snapshot.
// ============================================================================

// ErrNoSnapshot is returned before the first successful load.
var ErrNoSnapshot = errors.New("no snapshot loaded")

// Loader produces the full record set for a snapshot.
type Loader interface {
	Load(ctx context.Context) ([]engine.Record, helpers.LoadStats, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) ([]engine.Record, helpers.LoadStats, error)

func (f LoaderFunc) Load(ctx context.Context) ([]engine.Record, helpers.LoadStats, error) {
	return f(ctx)
}

// CSVFileLoader reads an incident export from disk.
type CSVFileLoader struct {
	Path    string
	Columns schema.Columns
}

func (l CSVFileLoader) Load(ctx context.Context) ([]engine.Record, helpers.LoadStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, helpers.LoadStats{}, err
	}
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, helpers.LoadStats{}, fmt.Errorf("open %s: %w", l.Path, err)
	}
	defer f.Close()

	records, stats, err := helpers.ParseCSVContext(ctx, f, l.Columns)
	if err != nil {
		return nil, stats, fmt.Errorf("parse %s: %w", l.Path, err)
	}
	return records, stats, nil
}

// Status describes the current snapshot.
type Status struct {
	Loaded     bool              `json:"loaded"`
	Generation uint64            `json:"generation"`
	Records    int               `json:"records"`
	LoadedAt   *time.Time        `json:"loadedAt,omitempty"`
	LastLoad   helpers.LoadStats `json:"lastLoad"`
	LastError  string            `json:"lastError,omitempty"`
	Cache      *cache.Stats      `json:"cache,omitempty"`
}

// Store is safe for concurrent use.
type Store struct {
	loader  Loader
	cache   *cache.ReportCache
	metrics *metrics.Metrics
	logger  *slog.Logger
	engine  []engine.Option

	current    atomic.Pointer[engine.Snapshot]
	generation atomic.Uint64

	reloadMu  sync.Mutex // serializes reloads
	statusMu  sync.RWMutex
	lastStats helpers.LoadStats
	lastErr   error
}

// Option configures a Store.
type Option func(*Store)

// WithCache memoizes reports in c.
func WithCache(c *cache.ReportCache) Option {
	return func(s *Store) { s.cache = c }
}

// WithMetrics reports reloads and queries to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEngineOptions sets the options every report is computed with.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *Store) { s.engine = append(s.engine, opts...) }
}

// New creates a store with no snapshot. Call Reload to load one.
func New(loader Loader, opts ...Option) *Store {
	s := &Store{
		loader: loader,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reload loads a fresh snapshot and swaps it in.
func (s *Store) Reload(ctx context.Context) (*engine.Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	records, stats, err := s.loader.Load(ctx)
	if err != nil {
		s.setStatus(stats, err)
		s.metrics.ObserveReload(0, 0, 0, err)
		s.logger.Error("snapshot reload failed",
			slog.Any("error", err),
			slog.Uint64("kept_generation", s.generation.Load()))
		return nil, err
	}

	gen := s.generation.Add(1)
	snap := engine.NewSnapshot(records, engine.WithGeneration(gen), engine.WithLoadedAt(time.Now().UTC()))
	s.current.Store(snap)
	if s.cache != nil {
		s.cache.InvalidateBefore(gen)
	}
	s.setStatus(stats, nil)
	s.metrics.ObserveReload(snap.Len(), gen, stats.Dropped, nil)

	s.logger.Info("snapshot loaded",
		slog.Uint64("generation", gen),
		slog.Int("records", snap.Len()),
		slog.Int("dropped", stats.Dropped),
		slog.Int("malformed", stats.Malformed),
		slog.Duration("took", time.Since(start)))
	return snap, nil
}

// Replace installs records directly as the next snapshot.
func (s *Store) Replace(records []engine.Record) *engine.Snapshot {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	gen := s.generation.Add(1)
	snap := engine.NewSnapshot(records, engine.WithGeneration(gen), engine.WithLoadedAt(time.Now().UTC()))
	s.current.Store(snap)
	if s.cache != nil {
		s.cache.InvalidateBefore(gen)
	}
	s.setStatus(helpers.LoadStats{Rows: len(records), Kept: len(records)}, nil)
	s.metrics.ObserveReload(snap.Len(), gen, 0, nil)
	return snap
}

func (s *Store) setStatus(stats helpers.LoadStats, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.lastStats = stats
	s.lastErr = err
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() (*engine.Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Report computes the report of a selection over the current snapshot.
func (s *Store) Report(ctx context.Context, sel engine.Selection) (*engine.Report, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	compute := func(context.Context) (*engine.Report, error) {
		return engine.Execute(snap, sel, s.engineOptions()...)
	}

	var report *engine.Report
	if s.cache != nil {
		report, err = s.cache.GetOrCompute(ctx, sel, snap.Generation(), compute)
	} else {
		report, err = compute(ctx)
	}
	s.metrics.ObserveQuery(time.Since(start), err)
	return report, err
}

// View applies a selection to the current snapshot.
func (s *Store) View(sel engine.Selection) (engine.View, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return engine.View{}, err
	}
	return engine.Filter(snap, sel)
}

// Selections returns the selection domain of the current snapshot.
func (s *Store) Selections() (engine.SelectionDomain, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return engine.SelectionDomain{}, err
	}
	return engine.DiscoverSelections(snap), nil
}

// Status describes the current snapshot and the last load attempt.
func (s *Store) Status() Status {
	s.statusMu.RLock()
	st := Status{LastLoad: s.lastStats}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	s.statusMu.RUnlock()

	if snap := s.current.Load(); snap != nil {
		loadedAt := snap.LoadedAt()
		st.Loaded = true
		st.Generation = snap.Generation()
		st.Records = snap.Len()
		st.LoadedAt = &loadedAt
	}
	if s.cache != nil {
		cs := s.cache.Stats()
		st.Cache = &cs
	}
	return st
}

func (s *Store) engineOptions() []engine.Option {
	opts := make([]engine.Option, 0, len(s.engine)+1)
	opts = append(opts, engine.WithLogger(s.logger))
	return append(opts, s.engine...)
}
