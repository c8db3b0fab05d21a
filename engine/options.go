package engine

import (
	"io"
	"log/slog"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for Execute()
// ============================================================================

// DefaultHighlighted is the breakdown used when WithHighlighted is not given.
var DefaultHighlighted = []string{"THEFT", "BATTERY"}

// DefaultTopN is the size of the top-categories ranking.
const DefaultTopN = 10

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	Highlighted []string
	TopN        int
	Logger      *slog.Logger
}

// WithHighlighted sets the categories that get their own breakdown bucket.
func WithHighlighted(categories ...string) Option {
	return func(c *config) {
		c.Highlighted = append([]string(nil), categories...)
	}
}

// WithTopN sets the number of categories in the top ranking.
func WithTopN(n int) Option {
	return func(c *config) {
		c.TopN = n
	}
}

// WithLogger sets the logger used for per-query debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Highlighted: append([]string(nil), DefaultHighlighted...),
		TopN:        DefaultTopN,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
