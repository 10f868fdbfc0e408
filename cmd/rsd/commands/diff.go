package commands

import (
	"github.com/spf13/cobra"
)

func newDiffCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diff HOST ROLE",
		Short: "Compute the diff that moves HOST to ROLE",
		Long: `Compute the partial diff system that, applied to HOST, yields ROLE.
Both inputs must be full systems. Components only in ROLE become
creation markers; components only in HOST become removal tombstones.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := readSystem(args[0])
			if err != nil {
				return err
			}
			role, err := readSystem(args[1])
			if err != nil {
				return err
			}
			delta, err := host.Diff(role)
			if err != nil {
				return err
			}
			return writeSystem(delta)
		},
	}
}
