package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/crimescope/config"
	"github.com/spektr-org/crimescope/engine"
)

// ============================================================================
// CRIMESCOPE CLI — Crime record reports from an incident export
// ============================================================================

const version = "0.3.0"

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	envFile    string
	dataPath   string
	format     string
	outFile    string
	logFormat  string
	logLevel   string

	// selection
	primaryType string
	year        string
	block       string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "crimescope",
		Short: "Filter and aggregate crime incident records",
		Long: `crimescope loads a crime incident export (Chicago "Crimes - 2001 to Present"
layout by default) and answers selections by primary type, year and block with
counts, arrest totals, category breakdowns, time series and map points.`,
		Example: `  crimescope report --file crimes.csv --year 2020 --format text
  crimescope report --file crimes.csv --type THEFT --format csv --out theft.csv
  crimescope selections --file crimes.csv --format pretty
  crimescope schema --file crimes.csv
  crimescope serve --config crimescope.yaml`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	pf.StringVar(&opts.envFile, "env-file", "", "Path to .env file (default: ./.env when present)")
	pf.StringVarP(&opts.dataPath, "file", "f", "", "Path to CSV incident export (overrides config)")
	pf.StringVar(&opts.format, "format", "json", "Output format: json, pretty, text, csv")
	pf.StringVarP(&opts.outFile, "out", "o", "", "Write output to file instead of stdout")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log format: text, json")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		newReportCmd(opts),
		newSelectionsCmd(opts),
		newRecordsCmd(opts),
		newChartsCmd(opts),
		newSchemaCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// addSelectionFlags registers --type, --year and --block on cmd.
func addSelectionFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVarP(&opts.primaryType, "type", "t", "", "Primary type, e.g. THEFT (default: all)")
	cmd.Flags().StringVarP(&opts.year, "year", "y", "", "Year, e.g. 2020 (default: all)")
	cmd.Flags().StringVarP(&opts.block, "block", "b", "", "Block, e.g. \"001XX N STATE ST\" (default: all)")
}

func (o *options) selection() (engine.Selection, error) {
	return engine.ParseSelection(o.primaryType, o.year, o.block)
}

// loadConfig resolves the config file, .env and flag overrides, in that
// order of increasing precedence.
func (o *options) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}

	var envFiles []string
	if o.envFile != "" {
		envFiles = append(envFiles, o.envFile)
	}
	if err := config.LoadEnv(envFiles...); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if o.dataPath != "" {
		cfg.Data.Path = o.dataPath
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// clean for report output.
func (o *options) newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", o.logLevel, err)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(o.logFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q (want text or json)", o.logFormat)
	}
}

// output opens the destination for command output. The returned close
// function is always non-nil.
func (o *options) output(cmd *cobra.Command) (io.Writer, func() error, error) {
	if o.outFile == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(o.outFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func validFormat(format string) error {
	switch format {
	case "json", "pretty", "text", "csv":
		return nil
	}
	return fmt.Errorf("unknown --format %q (want json, pretty, text or csv)", format)
}
