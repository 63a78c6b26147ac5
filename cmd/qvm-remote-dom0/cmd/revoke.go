package cmd

import (
	"fmt"

	"github.com/GabrieleRisso/qvm-remote/internal/cliexit"
	"github.com/GabrieleRisso/qvm-remote/internal/keystore"
	"github.com/spf13/cobra"
)

var revokeCmd = &cobra.Command{
	Use:   "revoke <domain>",
	Short: "Remove a domain's shared key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := keystore.NewControlStore(effectiveKeyDir())
		if err := store.Revoke(args[0]); err != nil {
			return cliexit.IOError("%w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(revokeCmd)
}
