package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/relmap/internal/cli/ui"
)

type modelSummary struct {
	Name      string `json:"name"`
	Table     string `json:"table"`
	Key       string `json:"key"`
	Relations int    `json:"relations"`
}

func newModelsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the registered models",
		Long: `List the registered models.

Shows every model loaded from the configured source with its table, its
primary key and the number of relation candidates it declares.`,
		Example: `  # List all models
  relmap models

  # List models in JSON format
  relmap models --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				return runModels(cmd, opts, a)
			})
		},
	}
}

func runModels(cmd *cobra.Command, opts *globalOptions, a *app) error {
	names := a.registry.Names()
	models := make([]modelSummary, 0, len(names))
	for _, name := range names {
		def, _ := a.registry.Get(name)
		factories, err := a.registry.ListRelationFactories(name)
		if err != nil {
			return err
		}
		models = append(models, modelSummary{
			Name:      name,
			Table:     def.TableName,
			Key:       def.PrimaryKey,
			Relations: len(factories),
		})
	}

	return render(cmd.OutOrStdout(), opts, models, func(w io.Writer) {
		table := ui.NewTable(w, opts.noColor, "Model", "Table", "Key", "Relations")
		for _, m := range models {
			table.AddRow(m.Name, m.Table, m.Key, strconv.Itoa(m.Relations))
		}
		table.Render()
		fmt.Fprintf(w, "\n%d models\n", len(models))
	})
}
