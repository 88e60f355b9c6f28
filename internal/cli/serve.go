package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlrest/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr   string
	Prefix string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve table operations over HTTP",
		Long: `Start the HTTP server. Every table of the configured database is
exposed under /:table/{select,aggregate,count,insert,update,delete}.

Example:
  sqlrest serve --driver sqlite3 --dsn ./app.db --addr :8080
  sqlrest serve --config sqlrest.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address, overrides config")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "route prefix such as /api, overrides config")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	return withApp(cmd, opts.RootOptions, func(ctx context.Context, a *app) error {
		cfg := a.cfg.Server
		if opts.Addr != "" {
			cfg.Addr = opts.Addr
		}
		if opts.Prefix != "" {
			cfg.Prefix = opts.Prefix
		}

		srv := server.New(a.service, server.Config{
			Addr:      cfg.Addr,
			Prefix:    cfg.Prefix,
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
			Metrics:   a.metrics,
			Health:    a.store,
		}, a.logger)

		if err := srv.Run(ctx); err != nil {
			return WrapExitError(ExitCommandError, "server failed", err)
		}
		a.logger.Info("server stopped")
		return nil
	})
}
