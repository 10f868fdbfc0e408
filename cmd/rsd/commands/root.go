package commands

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version string) error {
	rootCmd := newRootCommand(version)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rsd",
		Short: "Ready-Set-Deploy - offline-first deployment",
		Long: `Ready-Set-Deploy moves a host from its observed configuration to a
desired configuration with as few commands as possible. State is
structured data; rsd takes an algebraic difference and renders only
that difference into executable commands.

rsd neither defines desired state nor executes commands: it gathers,
diffs, combines, and renders. Each subcommand reads state documents
from files or stdin and writes to stdout.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newGatherCommand(version))
	rootCmd.AddCommand(newGatherAllCommand(version))
	rootCmd.AddCommand(newProvidersCommand())
	rootCmd.AddCommand(newCombineCommand())
	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newCommandsCommand(version))
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newApplyLocalCommand(version))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
