package commands

import (
	"github.com/spf13/cobra"

	"github.com/rsdeploy/rsd/pkg/pipeline"
	"github.com/rsdeploy/rsd/pkg/state"
)

func newGatherCommand(version string) *cobra.Command {
	var qualifier string

	cmd := &cobra.Command{
		Use:   "gather PROVIDER",
		Short: "Gather the local subsystem state for one provider",
		Long: `Gather the local subsystem state for PROVIDER and write it as a
full partial-system document. With --qualifier only the matching
component instance is gathered; otherwise all instances are.`,
		Example: `  rsd gather packages.homebrew
  rsd gather team.dotfiles --qualifier work/laptop`,
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

			result, err := pipeline.GatherAll(cmd.Context(), registry, []pipeline.Request{
				{Provider: args[0], Qualifier: state.ParseQualifier(qualifier)},
			}, pipeline.GatherOptions{})
			if err != nil {
				return err
			}
			if len(result.Skipped) > 0 {
				return result.Skipped[0].Err
			}
			return writeSystem(result.System)
		},
	}

	cmd.Flags().StringVar(&qualifier, "qualifier", "", "gather only the matching component instance (segments separated by /)")

	return cmd
}
