package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/GabrieleRisso/qvm-remote/internal/cliexit"
	"github.com/GabrieleRisso/qvm-remote/internal/keystore"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List domains with an installed key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := keystore.NewControlStore(effectiveKeyDir())
		domains, err := store.List()
		if err != nil {
			return cliexit.IOError("%w", err)
		}

		switch outputFormat {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(domains)
		case "yaml":
			out, err := yaml.Marshal(domains)
			if err != nil {
				return cliexit.IOError("%w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		default:
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DOMAIN\tFINGERPRINT")
			for _, d := range domains {
				fmt.Fprintf(w, "%s\t%s\n", d.Domain, d.Fingerprint)
			}
			return w.Flush()
		}
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}
