package commands

import (
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate STATE",
		Short: "Check a state file against schemas and dependencies",
		Long: `Check that every component of STATE matches its provider's declared
element schema and that every dependency edge resolves within the
system. Exits nonzero on the first violation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := readSystem(args[0])
			if err != nil {
				return err
			}
			_, registry, err := loadRegistry()
			if err != nil {
				return err
			}
			for _, component := range system.Components() {
				provider, err := registry.Get(component.Type())
				if err != nil {
					return err
				}
				if err := provider.Schema().Validate(component); err != nil {
					return err
				}
			}
			return system.Validate()
		},
	}
}
