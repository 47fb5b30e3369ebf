package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/relmap/internal/cli/ui"
	"github.com/conduit-lang/relmap/internal/mapper"
)

type resolveOutput struct {
	Path  string            `json:"path"`
	Valid bool              `json:"valid"`
	Steps mapper.Resolution `json:"steps"`
}

func newResolveCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <model> <path>",
		Short: "Resolve a dotted relation path",
		Long: `Resolve a dotted relation path from a model.

Each segment names a relation of the model reached by the previous segments.
The command exits with an error when the path does not resolve.`,
		Example: `  # Resolve the tags of the posts of an author
  relmap resolve Post author.posts.tags

  # Check a path from a script
  relmap resolve Post author --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				return runResolve(cmd, opts, a, args[0], args[1])
			})
		},
	}
}

func runResolve(cmd *cobra.Command, opts *globalOptions, a *app, model, path string) error {
	if err := a.requireModel(cmd, opts, model); err != nil {
		return err
	}

	res, err := a.mapper.Resolve(cmd.Context(), model, path)
	if err != nil {
		return err
	}
	if res == nil {
		res = mapper.Resolution{}
	}

	out := resolveOutput{Path: path, Valid: res.Valid(), Steps: res}
	err = render(cmd.OutOrStdout(), opts, out, func(w io.Writer) {
		if !res.Valid() {
			return
		}
		table := ui.NewTable(w, opts.noColor, "Path", "Type", "Model", "Keys")
		for _, step := range res {
			r := step.Relation
			table.AddRow(step.Path, string(r.Kind), r.Model, ui.Keys(r))
		}
		table.Render()
	})
	if err != nil || res.Valid() {
		return err
	}

	if !opts.json() {
		paths, err := a.mapper.MapKeysByName(cmd.Context(), model)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.ErrOrStderr(), ui.PathNotFoundError(model, path, ui.FindSimilar(path, paths), opts.noColor))
	}
	return &reportedError{err: fmt.Errorf("%w: %s", mapper.ErrInvalidPath, path)}
}
