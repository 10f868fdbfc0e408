package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers STATE",
		Short: "Output provider/qualifier pairs for gather-all",
		Long: `Extract the provider/qualifier pairs of STATE's components, in the
p=/q= line format gather-all reads:

  rsd providers role.rsd.json | rsd gather-all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := readSystem(args[0])
			if err != nil {
				return err
			}
			for _, component := range system.Components() {
				fmt.Fprintf(os.Stdout, "p=%s\n", component.Type())
				fmt.Fprintf(os.Stdout, "q=%s\n", component.Qualifier().String())
			}
			return nil
		},
	}
}
