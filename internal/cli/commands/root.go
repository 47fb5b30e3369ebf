package commands

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configPath string
	format     string
	noColor    bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "relmap",
		Short: "Discover, cache and query model relation graphs",
		Long: color.CyanString(`relmap - model relation discovery

relmap reads model definitions from a YAML file or a live database, discovers
the relations every model declares and expands them into bounded relation
graphs. Graphs are cached and answer dotted path queries such as
"author.posts.tags".

Features:
  • Depth bounded or duplicate pruned graphs
  • Memory or Redis backed relation cache
  • Path resolution and enumeration
  • HTTP API and model file watching`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Disable color output if requested
			if opts.noColor {
				color.NoColor = true
			}
			return validateFormat(opts.format)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default relmap.yml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&opts.format, "format", "table", "Output format: json or table")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newModelsCommand(opts))
	rootCmd.AddCommand(newRelationsCommand(opts))
	rootCmd.AddCommand(newPathsCommand(opts))
	rootCmd.AddCommand(newResolveCommand(opts))
	rootCmd.AddCommand(newRebuildCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the relmap version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			w := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Fprint(w, "relmap version: ")
			fmt.Fprintln(w, Version)

			titleColor.Fprint(w, "Git commit: ")
			fmt.Fprintln(w, GitCommit)

			titleColor.Fprint(w, "Build date: ")
			fmt.Fprintln(w, BuildDate)

			titleColor.Fprint(w, "Go version: ")
			fmt.Fprintln(w, goVer)
		},
	}
}

// reportedError is an error whose message was already written to the user
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
