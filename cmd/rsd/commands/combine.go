package commands

import (
	"github.com/spf13/cobra"

	"github.com/rsdeploy/rsd/pkg/state"
)

func newCombineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "combine STATE...",
		Short: "Combine multiple full state files",
		Long: `Fold the given full state files left to right into one system.
Shared component keys merge component-wise; disjoint keys pass
through.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			combined := state.NewSystem()
			for _, path := range args {
				system, err := readSystem(path)
				if err != nil {
					return err
				}
				combined, err = combined.Combine(system)
				if err != nil {
					return err
				}
			}
			return writeSystem(combined)
		},
	}
}
