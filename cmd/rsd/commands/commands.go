package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rsdeploy/rsd/pkg/pipeline"
	"github.com/rsdeploy/rsd/pkg/state"
)

func newCommandsCommand(version string) *cobra.Command {
	var initialPath string

	cmd := &cobra.Command{
		Use:   "commands DIFF",
		Short: "Render a diff as an ordered command stream",
		Long: `Render the diff system in DIFF into shell commands, one per line,
honoring the dependency order: a dependent is never created before
its dependency, and a dependency is never removed before its
dependents.

--initial supplies the full state the diff was computed against;
renderers need it to reconstruct the content of removed components.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, registry, err := loadRegistry()
			if err != nil {
				return err
			}
			shutdown, err := setupTelemetry(cfg, version)
			if err != nil {
				return err
			}
			defer shutdown()

			delta, err := readSystem(args[0])
			if err != nil {
				return err
			}
			var initial *state.System
			if initialPath != "" {
				initial, err = readSystem(initialPath)
				if err != nil {
					return err
				}
			}
			commands, err := pipeline.Commands(cmd.Context(), registry, delta, initial)
			if err != nil {
				return err
			}
			for _, command := range commands {
				fmt.Fprintln(os.Stdout, command)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&initialPath, "initial", "", "full state file the diff was computed against")

	return cmd
}
