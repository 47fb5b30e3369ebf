package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/relmap/internal/cli/ui"
	"github.com/conduit-lang/relmap/internal/events"
)

type rebuildOutput struct {
	ID     string   `json:"id"`
	Policy string   `json:"policy"`
	Models []string `json:"models"`
}

func newRebuildCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild [model...]",
		Short: "Invalidate and rebuild the relation cache",
		Long: `Invalidate the relation cache and rebuild the graphs of the given models,
or of every registered model when none is given.

With the redis cache driver the rebuilt graphs are shared with every relmap
process using the same Redis database.`,
		Example: `  # Rebuild every model
  relmap rebuild

  # Rebuild two models
  relmap rebuild Post User`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				return runRebuild(cmd, opts, a, args)
			})
		},
	}
}

func runRebuild(cmd *cobra.Command, opts *globalOptions, a *app, models []string) error {
	for _, model := range models {
		if err := a.requireModel(cmd, opts, model); err != nil {
			return err
		}
	}

	event := events.NewModelMapUpdated("cli", models...)
	if err := a.bus.Publish(cmd.Context(), event); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	if len(models) == 0 {
		models = a.registry.Names()
	}
	out := rebuildOutput{
		ID:     event.ID.String(),
		Policy: a.mapper.Policy().String(),
		Models: models,
	}
	return render(cmd.OutOrStdout(), opts, out, func(w io.Writer) {
		ui.WriteSuccess(w, fmt.Sprintf("Rebuilt %d models (policy %s)", len(models), out.Policy), opts.noColor)
	})
}
