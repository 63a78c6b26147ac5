// Package cmd implements the qvm-remote submitter's command tree: a
// bare invocation (or piped stdin) submits a command, with key, ping,
// log and history as the secondary verb taxonomy.
package cmd

import (
	"os"
	"strconv"
	"time"

	"github.com/GabrieleRisso/qvm-remote/internal/queue"
	"github.com/GabrieleRisso/qvm-remote/internal/version"
	"github.com/spf13/cobra"
)

// DefaultTimeoutSeconds is submit()'s default timeout.
const DefaultTimeoutSeconds = 30

// RemoteExitCode is the exit code main should use once Execute returns
// a nil error. It mirrors the remote process's exit code for a
// successful submission and stays 0 for every subcommand that isn't a
// submission.
// cobra's RunE contract has no room for "succeeded, but please exit
// non-zero", so this is threaded out of band rather than through the
// error return.
var RemoteExitCode int

var (
	timeoutSeconds int
	outputFormat   string
)

var rootCmd = &cobra.Command{
	Use:           "qvm-remote [command...]",
	Short:         "Submit a command to the control domain for execution",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubmit(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 0, "seconds to wait for a result before giving up (default 30, or $QVM_REMOTE_TIMEOUT)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format for history/log: table, json, yaml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// effectiveTimeout resolves submit()'s timeout argument: the --timeout
// flag if given, otherwise $QVM_REMOTE_TIMEOUT, otherwise
// DefaultTimeoutSeconds.
func effectiveTimeout() time.Duration {
	if timeoutSeconds > 0 {
		return time.Duration(timeoutSeconds) * time.Second
	}
	if raw := os.Getenv("QVM_REMOTE_TIMEOUT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return DefaultTimeoutSeconds * time.Second
}

// guestLayout resolves the current user's queue layout, running the
// legacy-directory migration as a side effect of EnsureDirs.
func guestLayout() (*queue.Layout, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	l := queue.NewLayout(home)
	if err := l.EnsureDirs(); err != nil {
		return nil, err
	}
	return l, nil
}
