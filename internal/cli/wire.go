package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlrest/internal/config"
	"github.com/roach88/sqlrest/internal/expr"
	"github.com/roach88/sqlrest/internal/metrics"
	"github.com/roach88/sqlrest/internal/querybuild"
	"github.com/roach88/sqlrest/internal/schema"
	"github.com/roach88/sqlrest/internal/schemacache"
	"github.com/roach88/sqlrest/internal/store"
	"github.com/roach88/sqlrest/internal/table"
)

// app is the wired service graph shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	cache   *schemacache.RedisKV
	metrics *metrics.Metrics
	service *table.Service
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Driver != "" {
		cfg.Database.Driver = opts.Driver
	}
	if opts.DSN != "" {
		cfg.Database.DSN = opts.DSN
	}
	if cfg.Database.DSN == "" {
		return nil, NewExitError(ExitCommandError, "no database DSN configured")
	}
	return cfg, nil
}

// newLogger builds the process logger. --verbose forces DEBUG.
func newLogger(cfg config.Log, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// openApp loads configuration and connects everything a command needs.
// The caller must Close the result.
func openApp(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Log, opts.Verbose, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	logger.Debug("opening database", "driver", cfg.Database.Driver)
	st, err := store.Open(ctx, store.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	a := &app{cfg: cfg, logger: logger, store: st}

	var schemas schema.Provider = st
	if cfg.SchemaCache.Enabled() {
		kv, err := schemacache.NewRedisKV(ctx, schemacache.RedisOptions{
			Addr:     cfg.SchemaCache.Addr,
			Password: cfg.SchemaCache.Password,
			DB:       cfg.SchemaCache.DB,
		})
		if err != nil {
			a.Close()
			return nil, WrapExitError(ExitCommandError, "failed to connect schema cache", err)
		}
		a.cache = kv
		schemas = schemacache.New(st, kv, cfg.SchemaCache.TTL, cfg.SchemaCache.Prefix, logger)
		logger.Debug("schema cache enabled", "addr", cfg.SchemaCache.Addr, "ttl", cfg.SchemaCache.TTL)
	}

	builder := querybuild.New(
		expr.NewClassifier(cfg.Query.ContinuousFunctions...),
		querybuild.Options{
			DefaultPageSize: cfg.Query.DefaultPageSize,
			MaxPageSize:     cfg.Query.MaxPageSize,
		},
	)

	logger.Debug("query builder ready",
		"continuous_functions", builder.Classifier().Functions(),
		"default_page_size", cfg.Query.DefaultPageSize,
		"max_page_size", cfg.Query.MaxPageSize,
	)

	sessions := table.BeginFunc(func(ctx context.Context) (table.Session, error) {
		sess, err := st.Begin(ctx)
		if err != nil {
			return nil, err
		}
		return sess, nil
	})

	svcOpts := []table.Option{table.WithLogger(logger)}
	if cfg.Server.MetricsEnabled() {
		a.metrics = metrics.New()
		svcOpts = append(svcOpts, table.WithObserver(a.metrics))
	}
	a.service = table.New(schemas, sessions, builder, svcOpts...)

	return a, nil
}

// Close releases the database and cache connections.
func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("error closing schema cache", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// withApp opens the app, runs fn, and closes the app. Operation errors are
// returned with ExitFailure.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("%s failed", cmd.Name()), err)
	}
	return nil
}

func newOutput(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}
