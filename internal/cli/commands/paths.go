package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/relmap/internal/cli/ui"
	"github.com/conduit-lang/relmap/internal/mapper"
	"github.com/conduit-lang/relmap/internal/relation"
)

type pathsOutput struct {
	Model string   `json:"model"`
	Paths []string `json:"paths"`
}

func newPathsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths <model>",
		Short: "List every dotted relation path of a model",
		Long: `List every dotted relation path of a model.

Paths are listed depth first in declaration order, parents before children.
Every listed path is accepted by 'relmap resolve'.`,
		Example: `  # List the paths reachable from Post
  relmap paths Post`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				return runPaths(cmd, opts, a, args[0])
			})
		},
	}
}

func runPaths(cmd *cobra.Command, opts *globalOptions, a *app, model string) error {
	if err := a.requireModel(cmd, opts, model); err != nil {
		return err
	}

	var rows [][]string
	paths, err := a.mapper.MapPaths(cmd.Context(), model, func(prefix string, r *relation.Relation) (string, []string, bool) {
		next, keys, ok := mapper.ByName(prefix, r)
		rows = append(rows, []string{next, string(r.Kind), r.Model})
		return next, keys, ok
	})
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), opts, pathsOutput{Model: model, Paths: paths}, func(w io.Writer) {
		table := ui.NewTable(w, opts.noColor, "Path", "Type", "Model")
		for _, row := range rows {
			table.AddRow(row...)
		}
		table.Render()
		fmt.Fprintf(w, "\n%d paths\n", len(paths))
	})
}
