package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spektr-org/crimescope/config"
	"github.com/spektr-org/crimescope/metrics"
	"github.com/spektr-org/crimescope/store"
)

// ============================================================================
// SERVER — JSON API over a store
// ============================================================================
//   GET  /api/v1/report       full Report + metric tiles
//   GET  /api/v1/selections   selectable types, blocks and year range
//   GET  /api/v1/records      record table of the filtered view
//   GET  /api/v1/charts       chart configs (optionally ?kind=)
//   GET  /api/v1/points       geolocatable points + bounds
//   GET  /api/v1/status       snapshot + cache status
//   POST /api/v1/reload       reload the snapshot now
//   GET  /healthz             200 once a snapshot is loaded
//   GET  /metrics             Prometheus exposition
//
// Selection query parameters: type, year, block.
// ============================================================================

// Server serves the API for one store.
type Server struct {
	store      *store.Store
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tableLimit int
	rateLimit  float64
	rateBurst  int

	router *gin.Engine
	http   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes m on /metrics and counts requests in it.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTableLimit caps the rows of /api/v1/records when no limit is given.
func WithTableLimit(n int) Option {
	return func(s *Server) { s.tableLimit = n }
}

// WithRateLimit limits requests per second across all clients.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.rateLimit = rps
		s.rateBurst = burst
	}
}

// New builds the router for st.
func New(st *store.Store, opts ...Option) *Server {
	s := &Server{
		store:      st,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		tableLimit: 200,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// FromConfig builds a server and its http.Server from the server section.
func FromConfig(st *store.Store, cfg *config.Config, opts ...Option) *Server {
	base := []Option{
		WithTableLimit(cfg.Report.TableLimit),
		WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
	}
	s := New(st, append(base, opts...)...)
	s.http = &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Serve listens until Shutdown. http.ErrServerClosed is not returned.
func (s *Server) Serve() error {
	if s.http == nil {
		return errors.New("server has no listen address; build it with FromConfig")
	}
	s.logger.Info("listening", slog.String("address", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(s.logger, s.metrics))
	if s.rateLimit > 0 {
		r.Use(RateLimit(s.rateLimit, s.rateBurst))
	}

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api/v1")
	{
		api.GET("/report", s.handleReport)
		api.GET("/selections", s.handleSelections)
		api.GET("/records", s.handleRecords)
		api.GET("/charts", s.handleCharts)
		api.GET("/points", s.handlePoints)
		api.GET("/status", s.handleStatus)
		api.POST("/reload", s.handleReload)
	}
	return r
}
