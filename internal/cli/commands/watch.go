package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/relmap/internal/events"
	"github.com/conduit-lang/relmap/internal/watch"
)

func newWatchCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the relation cache when the model file changes",
		Long: `Watch the model file and rebuild the relation cache on every change.

The cache is warmed on start. A model file that fails to load is reported and
leaves the previous models and graphs in place.

Only available when models.source is yaml.`,
		Example: `  # Keep a shared Redis cache in sync with models.yml
  RELMAP_CACHE_DRIVER=redis relmap watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				if err := a.warm(ctx); err != nil {
					return err
				}

				banner := color.New(color.FgCyan, color.Bold)
				w := cmd.OutOrStdout()
				banner.Fprintln(w, "relmap watcher")
				fmt.Fprintf(w, "   Models: %s\n", a.config.Models.Path)
				fmt.Fprintf(w, "   Policy: %s\n", a.mapper.Policy())
				color.New(color.FgYellow).Fprintln(w, "   Press Ctrl+C to stop")

				return a.watch(ctx)
			})
		},
	}
}

// warm rebuilds every graph once
func (a *app) warm(ctx context.Context) error {
	return a.bus.Publish(ctx, events.NewModelMapUpdated("startup"))
}

// watch reloads the model file on change until ctx is done
func (a *app) watch(ctx context.Context) error {
	if a.config.Models.Source != "yaml" {
		return errors.New("watching requires models.source yaml")
	}
	return watch.NewReloader(a.config.Models.Path, a.registry, a.bus, a.logger).Watch(ctx)
}
