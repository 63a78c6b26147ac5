package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// pingBody is the trivial remote command ping synthesises to check the
// round trip without the caller having to think of one.
const pingBody = "echo pong"

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Submit a trivial command and report the round trip",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		if err := runSubmit(cmd, []string{pingBody}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "round trip: %s\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
