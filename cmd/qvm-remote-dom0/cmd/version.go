package cmd

import (
	"fmt"

	"github.com/GabrieleRisso/qvm-remote/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the qvm-remote-dom0 version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "qvm-remote-dom0 %s\n", version.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
