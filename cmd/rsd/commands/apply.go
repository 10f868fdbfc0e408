package commands

import (
	"github.com/spf13/cobra"
)

func newApplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apply HOST DIFF",
		Short: "Apply a diff to a full state",
		Long: `Apply the diff system in DIFF to the full system in HOST and write
the resulting full system. A diff component without a matching full
component in HOST fails with missing-base.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := readSystem(args[0])
			if err != nil {
				return err
			}
			delta, err := readSystem(args[1])
			if err != nil {
				return err
			}
			applied, err := host.Apply(delta)
			if err != nil {
				return err
			}
			return writeSystem(applied)
		},
	}
}
