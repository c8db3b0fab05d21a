package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/spektr-org/crimescope/cache"
	"github.com/spektr-org/crimescope/config"
	"github.com/spektr-org/crimescope/engine"
	"github.com/spektr-org/crimescope/metrics"
	"github.com/spektr-org/crimescope/schema"
	"github.com/spektr-org/crimescope/server"
	"github.com/spektr-org/crimescope/store"
)

// env is what every data command needs before it runs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
}

// prepare loads config, builds the logger and loads the snapshot.
func prepare(cmd *cobra.Command, opts *options, storeOpts ...store.Option) (*env, error) {
	if err := validFormat(opts.format); err != nil {
		return nil, err
	}
	logger, err := opts.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Data.Path == "" {
		return nil, errors.New("no data file: pass --file or set data.path / CRIMESCOPE_DATA_PATH")
	}

	base := []store.Option{
		store.WithLogger(logger),
		store.WithEngineOptions(cfg.EngineOptions()...),
	}
	st := store.New(store.CSVFileLoader{Path: cfg.Data.Path, Columns: cfg.Data.Columns},
		append(base, storeOpts...)...)
	if _, err := st.Reload(cmd.Context()); err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, store: st}, nil
}

// ============================================================================
// report
// ============================================================================

func newReportCmd(opts *options) *cobra.Command {
	var highlight []string
	var topN int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute the statistics report for a selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := opts.selection()
			if err != nil {
				return err
			}
			var engineOpts []engine.Option
			if cmd.Flags().Changed("highlight") {
				engineOpts = append(engineOpts, engine.WithHighlighted(highlight...))
			}
			if cmd.Flags().Changed("top") {
				engineOpts = append(engineOpts, engine.WithTopN(topN))
			}

			e, err := prepare(cmd, opts, store.WithEngineOptions(engineOpts...))
			if err != nil {
				return err
			}
			report, err := e.store.Report(cmd.Context(), sel)
			if err != nil {
				return err
			}

			w, closeOut, err := opts.output(cmd)
			if err != nil {
				return err
			}
			defer closeOut()

			switch opts.format {
			case "csv":
				return writeReportCSV(w, report)
			case "text":
				return writeReportText(w, engine.BuildText(report))
			default:
				return writeJSON(w, reportOutput{
					Selection: sel.Label(),
					Report:    report,
					Text:      engine.BuildText(report),
				}, opts.format)
			}
		},
	}
	addSelectionFlags(cmd, opts)
	cmd.Flags().StringSliceVar(&highlight, "highlight", nil, "Categories with their own breakdown bucket (default from config)")
	cmd.Flags().IntVar(&topN, "top", engine.DefaultTopN, "Size of the top-categories ranking")
	return cmd
}

// ============================================================================
// selections
// ============================================================================

func newSelectionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "selections",
		Short: "List the primary types, blocks and years available for selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := prepare(cmd, opts)
			if err != nil {
				return err
			}
			dom, err := e.store.Selections()
			if err != nil {
				return err
			}

			w, closeOut, err := opts.output(cmd)
			if err != nil {
				return err
			}
			defer closeOut()

			switch opts.format {
			case "csv":
				return writeSelectionsCSV(w, dom)
			case "text":
				return writeSelectionsText(w, dom)
			default:
				return writeJSON(w, dom, opts.format)
			}
		},
	}
}

// ============================================================================
// records
// ============================================================================

func newRecordsCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List the records matching a selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := opts.selection()
			if err != nil {
				return err
			}
			e, err := prepare(cmd, opts)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				limit = e.cfg.Report.TableLimit
			}
			view, err := e.store.View(sel)
			if err != nil {
				return err
			}
			table := engine.BuildRecordTable(sel.Label(), view, limit)

			w, closeOut, err := opts.output(cmd)
			if err != nil {
				return err
			}
			defer closeOut()

			switch opts.format {
			case "csv":
				return writeTableCSV(w, table)
			case "text":
				return writeTableText(w, table)
			default:
				return writeJSON(w, table, opts.format)
			}
		},
	}
	addSelectionFlags(cmd, opts)
	cmd.Flags().IntVar(&limit, "limit", engine.DefaultTableLimit, "Maximum rows (0 = all)")
	return cmd
}

// ============================================================================
// charts
// ============================================================================

func newChartsCmd(opts *options) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "charts",
		Short: "Build render-ready chart configs for a selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := opts.selection()
			if err != nil {
				return err
			}
			e, err := prepare(cmd, opts)
			if err != nil {
				return err
			}
			report, err := e.store.Report(cmd.Context(), sel)
			if err != nil {
				return err
			}

			var charts []engine.ChartConfig
			if kind == "" {
				charts = engine.BuildCharts(report)
			} else {
				chart := engine.BuildChart(report, kind)
				if chart == nil {
					return fmt.Errorf("no %q chart for %s", kind, sel.Label())
				}
				charts = []engine.ChartConfig{*chart}
			}

			w, closeOut, err := opts.output(cmd)
			if err != nil {
				return err
			}
			defer closeOut()

			switch opts.format {
			case "csv":
				return writeChartsCSV(w, charts)
			case "text":
				return writeChartsText(w, charts)
			default:
				return writeJSON(w, charts, opts.format)
			}
		},
	}
	addSelectionFlags(cmd, opts)
	cmd.Flags().StringVar(&kind, "kind", "", "Only this chart: monthly, hourly, categories, distribution")
	return cmd
}

// ============================================================================
// schema
// ============================================================================

func newSchemaCmd(opts *options) *cobra.Command {
	var sample int

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Resolve the column mapping of a CSV export and profile its rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validFormat(opts.format); err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Data.Path == "" {
				return errors.New("no data file: pass --file or set data.path / CRIMESCOPE_DATA_PATH")
			}
			f, err := os.Open(cfg.Data.Path)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			defer f.Close()

			profile, err := schema.DiscoverFromCSV(f, schema.DiscoverOptions{
				SampleSize: sample,
				Columns:    cfg.Data.Columns,
			})
			if err != nil {
				return err
			}

			w, closeOut, err := opts.output(cmd)
			if err != nil {
				return err
			}
			defer closeOut()

			if opts.format == "text" {
				return writeProfileText(w, profile)
			}
			return writeJSON(w, profile, opts.format)
		},
	}
	cmd.Flags().IntVar(&sample, "sample", schema.DefaultDiscoverOptions().SampleSize, "Rows to profile (0 = all)")
	return cmd
}

// ============================================================================
// serve
// ============================================================================

func newServeCmd(opts *options) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports over HTTP and reload the data on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.New(reg)

			storeOpts := []store.Option{store.WithMetrics(m)}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Cache.Enabled {
				storeOpts = append(storeOpts, store.WithCache(
					cache.New(cache.WithMaxEntries(cfg.Cache.MaxEntries), cache.WithObserver(m))))
			}

			e, err := prepare(cmd, opts, storeOpts...)
			if err != nil {
				return err
			}
			if listen != "" {
				e.cfg.Server.ListenAddress = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if e.cfg.Reload.Schedule != "" {
				sch, err := store.NewScheduler(e.store, e.cfg.Reload.Schedule, e.logger)
				if err != nil {
					return err
				}
				sch.Start()
				defer func() { <-sch.Stop().Done() }()
				e.logger.Info("reload scheduled",
					slog.String("schedule", e.cfg.Reload.Schedule),
					slog.Time("next", sch.Next()))
			}

			srv := server.FromConfig(e.store, e.cfg, server.WithMetrics(m), server.WithLogger(e.logger))
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				e.logger.Info("shutting down")
				return srv.Shutdown(context.Background())
			}
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides config)")
	return cmd
}
