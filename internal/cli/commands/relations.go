package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/relmap/internal/cli/ui"
	"github.com/conduit-lang/relmap/internal/relation"
)

type relationsOutput struct {
	Model     string               `json:"model"`
	Policy    string               `json:"policy"`
	Relations []*relation.Relation `json:"relations"`
}

func newRelationsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "relations <model>",
		Short: "Show the relation graph of a model",
		Long: `Show the relation graph of a model.

The graph is built under the configured pruning policy: depth bounded graphs
stop expanding after mapper.max_depth levels, duplicate pruned graphs expand
every distinct relation once.`,
		Example: `  # Show the relation tree of Post
  relmap relations Post

  # Show the full graph in JSON format
  relmap relations Post --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				return runRelations(cmd, opts, a, args[0])
			})
		},
	}
}

func runRelations(cmd *cobra.Command, opts *globalOptions, a *app, model string) error {
	if err := a.requireModel(cmd, opts, model); err != nil {
		return err
	}

	rels, err := a.mapper.Relations(cmd.Context(), model)
	if err != nil {
		return err
	}
	if rels == nil {
		rels = []*relation.Relation{}
	}

	out := relationsOutput{
		Model:     model,
		Policy:    a.mapper.Policy().String(),
		Relations: rels,
	}
	return render(cmd.OutOrStdout(), opts, out, func(w io.Writer) {
		ui.NewTree(w, opts.noColor).Render(model, rels)
	})
}
