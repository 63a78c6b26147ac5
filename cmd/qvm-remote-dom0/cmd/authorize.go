package cmd

import (
	"fmt"

	"github.com/GabrieleRisso/qvm-remote/internal/cliexit"
	"github.com/GabrieleRisso/qvm-remote/internal/keystore"
	"github.com/spf13/cobra"
)

var authorizeForce bool

var authorizeCmd = &cobra.Command{
	Use:   "authorize <domain> <hex-key>",
	Short: "Install a domain's shared key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := keystore.NewControlStore(effectiveKeyDir())
		if err := store.Authorize(args[0], args[1], authorizeForce); err != nil {
			return cliexit.InvalidInput("%w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "authorized %s\n", args[0])
		return nil
	},
}

func init() {
	authorizeCmd.Flags().BoolVar(&authorizeForce, "force", false, "overwrite an existing key (rotation)")
	rootCmd.AddCommand(authorizeCmd)
}
