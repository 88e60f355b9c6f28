// Package server exposes table operations over HTTP with gin.
//
// Routes (under an optional prefix):
//
//	GET       /health
//	GET       /metrics                 when metrics are enabled
//	GET       /tables
//	GET       /:table/columns
//	GET|POST  /:table/select
//	GET|POST  /:table/aggregate
//	GET|POST  /:table/count
//	POST      /:table/insert
//	POST      /:table/update
//	POST      /:table/delete
//
// Read routes take their parameters from the query string on GET and from a
// JSON body on POST. Errors are returned as
//
//	{"error": {"code": "UNKNOWN_COLUMN", "message": "..."}}
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/sqlrest/internal/metrics"
	"github.com/roach88/sqlrest/internal/querybuild"
	"github.com/roach88/sqlrest/internal/schema"
	"github.com/roach88/sqlrest/internal/table"
)

// Service is the set of table operations served over HTTP.
type Service interface {
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]schema.Column, error)
	Select(ctx context.Context, table string, req querybuild.SelectRequest) ([]map[string]any, error)
	Aggregate(ctx context.Context, table string, req querybuild.AggregateRequest) ([]map[string]any, error)
	Count(ctx context.Context, table string, filters map[string]any) (int64, error)
	Insert(ctx context.Context, table string, rows []map[string]any) (table.MutationResult, error)
	Update(ctx context.Context, table string, filters, values map[string]any) (table.MutationResult, error)
	Delete(ctx context.Context, table string, filters map[string]any) (table.MutationResult, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config configures the HTTP server.
type Config struct {
	Addr   string
	Prefix string

	// RateLimit is requests per second per client IP. Zero disables it.
	RateLimit float64
	RateBurst int

	// Metrics enables instrumentation and the /metrics route when non-nil.
	Metrics *metrics.Metrics

	// Health is checked by /health when non-nil.
	Health Pinger
}

// Server is an HTTP front end for a Service.
type Server struct {
	cfg    Config
	svc    Service
	logger *slog.Logger
	engine *gin.Engine
}

// New builds the router.
func New(svc Service, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{cfg: cfg, svc: svc, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestContext(logger))
	if cfg.Metrics != nil {
		router.Use(instrument(cfg.Metrics))
	}
	if cfg.RateLimit > 0 {
		router.Use(rateLimit(newIPLimiter(cfg.RateLimit, cfg.RateBurst)))
	}

	s.routes(router.Group(cfg.Prefix))
	s.engine = router
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr, "prefix", s.cfg.Prefix)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes(r *gin.RouterGroup) {
	r.GET("/health", s.health)
	if s.cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.cfg.Metrics.Handler()))
	}

	r.GET("/tables", s.listTables)
	r.GET("/:table/columns", s.listColumns)

	r.GET("/:table/select", s.selectRows)
	r.POST("/:table/select", s.selectRows)
	r.GET("/:table/aggregate", s.aggregate)
	r.POST("/:table/aggregate", s.aggregate)
	r.GET("/:table/count", s.count)
	r.POST("/:table/count", s.count)

	r.POST("/:table/insert", s.insert)
	r.POST("/:table/update", s.update)
	r.POST("/:table/delete", s.deleteRows)
}
