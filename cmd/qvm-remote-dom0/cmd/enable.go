package cmd

import (
	"fmt"

	"github.com/GabrieleRisso/qvm-remote/internal/cliexit"
	"github.com/spf13/cobra"
)

// serviceUnit is the systemd unit the enable/disable subcommands
// toggle so the platform service manager brings the daemon up at boot.
const serviceUnit = "qvm-remote-dom0.service"

var enableYes bool

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable the executor daemon to start at boot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !enableYes && !confirmPhrase(cmd, "enable") {
			fmt.Fprintln(cmd.OutOrStdout(), "enable cancelled")
			return nil
		}
		if err := systemctl("enable", "--now", serviceUnit); err != nil {
			return cliexit.IOError("%w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s enabled\n", serviceUnit)
		return nil
	},
}

func init() {
	enableCmd.Flags().BoolVar(&enableYes, "yes", false, "skip the interactive confirmation phrase")
	rootCmd.AddCommand(enableCmd)
}
