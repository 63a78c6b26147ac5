package cmd

import (
	"fmt"

	"github.com/GabrieleRisso/qvm-remote/internal/cliexit"
	"github.com/GabrieleRisso/qvm-remote/internal/keystore"
	"github.com/spf13/cobra"
)

var keyReplace bool

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage this domain's shared secret",
}

var keyGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate a new key and install it at ~/.qvm-remote/auth.key",
	Long: `Generate a new 256-bit key and install it locally.

The generated key must still be authorised on the control domain
(qvm-remote-dom0 authorize <this-domain> <hex>) before any command
submitted under it will execute.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := guestLayout()
		if err != nil {
			return cliexit.IOError("prepare queue directory: %w", err)
		}
		hexKey, err := keystore.NewGuestKey(l.AuthKeyPath()).Generate(keyReplace)
		if err != nil {
			return cliexit.SubmitFailed("%w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), hexKey)
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the currently installed key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := guestLayout()
		if err != nil {
			return cliexit.IOError("prepare queue directory: %w", err)
		}
		_, hexKey, ok, err := keystore.NewGuestKey(l.AuthKeyPath()).Load()
		if err != nil {
			return cliexit.IOError("%w", err)
		}
		if !ok {
			return cliexit.NoKey("no key installed; run 'qvm-remote key gen'")
		}
		fmt.Fprintln(cmd.OutOrStdout(), hexKey)
		return nil
	},
}

var keyImportCmd = &cobra.Command{
	Use:   "import <hex>",
	Short: "Install a key generated or authorised elsewhere",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := guestLayout()
		if err != nil {
			return cliexit.IOError("prepare queue directory: %w", err)
		}
		if err := keystore.NewGuestKey(l.AuthKeyPath()).Import(args[0], keyReplace); err != nil {
			return cliexit.InvalidInput("%w", err)
		}
		return nil
	},
}

func init() {
	keyGenCmd.Flags().BoolVar(&keyReplace, "replace", false, "overwrite an existing key")
	keyImportCmd.Flags().BoolVar(&keyReplace, "replace", false, "overwrite an existing key")
	keyCmd.AddCommand(keyGenCmd, keyShowCmd, keyImportCmd)
	rootCmd.AddCommand(keyCmd)
}
