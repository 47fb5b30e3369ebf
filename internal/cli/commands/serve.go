package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/relmap/internal/web/api"
	"github.com/conduit-lang/relmap/internal/web/server"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var (
		address string
		watch   bool
		pprof   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the relation API over HTTP",
		Long: `Serve relation graphs, paths and path resolution over HTTP.

Routes:
  GET  /models
  GET  /models/{model}/relations
  GET  /models/{model}/paths
  GET  /models/{model}/resolve?path=a.b
  POST /rebuild
  GET  /debug/pprof/*  (with --pprof)`,
		Example: `  # Serve on the configured address
  relmap serve

  # Serve on a custom address and follow model file changes
  relmap serve --addr :9090 --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				if address == "" {
					address = a.config.Server.Address()
				}

				handler := api.NewHandler(a.mapper, a.registry, a.bus, a.logger)
				if pprof {
					handler.WithProfiling(nil)
				}

				config := server.DefaultConfig(handler.Routes())
				config.Address = address
				srv, err := server.New(config)
				if err != nil {
					return err
				}
				if err := srv.Listen(); err != nil {
					return err
				}

				if err := a.warm(ctx); err != nil {
					a.logger.Warn("initial rebuild failed", zap.Error(err))
				}

				color.New(color.FgCyan, color.Bold).Fprintf(cmd.OutOrStdout(), "relmap API listening on http://%s\n", srv.Addr())
				a.logger.Info("server started", zap.String("address", srv.Addr()))

				g, ctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					return srv.Run(ctx)
				})
				if watch {
					g.Go(func() error {
						return a.watch(ctx)
					})
				}
				return g.Wait()
			})
		},
	}

	cmd.Flags().StringVar(&address, "addr", "", "Listen address (default server.host:server.port)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload models when the model file changes")
	cmd.Flags().BoolVar(&pprof, "pprof", false, "Mount pprof endpoints under /debug/pprof")

	return cmd
}
