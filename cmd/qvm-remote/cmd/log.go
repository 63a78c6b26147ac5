package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/GabrieleRisso/qvm-remote/internal/audit"
	"github.com/GabrieleRisso/qvm-remote/internal/cliexit"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultLogTail = 20

var logCmd = &cobra.Command{
	Use:   "log [N]",
	Short: "Print the tail of this domain's audit log",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := defaultLogTail
		if len(args) == 1 {
			parsed, err := parsePositiveInt(args[0])
			if err != nil {
				return cliexit.InvalidInput("%w", err)
			}
			n = parsed
		}

		l, err := guestLayout()
		if err != nil {
			return cliexit.IOError("prepare queue directory: %w", err)
		}
		lines, err := audit.Tail(l.AuditLogPath(), n)
		if err != nil {
			return cliexit.IOError("%w", err)
		}

		switch outputFormat {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(lines)
		case "yaml":
			out, err := yaml.Marshal(lines)
			if err != nil {
				return cliexit.IOError("%w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		default:
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}
