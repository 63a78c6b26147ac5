package cmd

import (
	"fmt"

	"github.com/GabrieleRisso/qvm-remote/internal/cliexit"
	"github.com/spf13/cobra"
)

var disableYes bool

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop the executor daemon from starting at boot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !disableYes && !confirmYesNo(cmd, fmt.Sprintf("Disable %s?", serviceUnit)) {
			fmt.Fprintln(cmd.OutOrStdout(), "disable cancelled")
			return nil
		}
		if err := systemctl("disable", "--now", serviceUnit); err != nil {
			return cliexit.IOError("%w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s disabled\n", serviceUnit)
		return nil
	},
}

func init() {
	disableCmd.Flags().BoolVar(&disableYes, "yes", false, "skip the interactive confirmation")
	rootCmd.AddCommand(disableCmd)
}
