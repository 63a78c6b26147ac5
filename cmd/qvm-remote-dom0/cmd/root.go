// Package cmd implements the qvm-remote-dom0 command tree: serve (the
// executor daemon itself, and the default when no subcommand is given)
// plus the administrative surface — authorize, revoke, keys, enable,
// disable.
package cmd

import (
	"time"

	"github.com/GabrieleRisso/qvm-remote/internal/audit"
	"github.com/GabrieleRisso/qvm-remote/internal/config"
	"github.com/GabrieleRisso/qvm-remote/internal/executor"
	"github.com/GabrieleRisso/qvm-remote/internal/keystore"
	"github.com/GabrieleRisso/qvm-remote/internal/version"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	keyDirFlag   string
	logPath      string
	guestHome    string
	outputFormat string

	vmFlag           string
	onceFlag         bool
	dryRunFlag       bool
	workersFlag      int
	pollIntervalFlag time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "qvm-remote-dom0",
	Short:         "Control-domain executor daemon and key administration",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to remote.conf (default "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&keyDirFlag, "key-dir", "", "control-side key directory (default "+keystore.DefaultControlKeyDir()+")")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "audit log path (default "+audit.DefaultControlLogPath()+")")
	rootCmd.PersistentFlags().StringVar(&guestHome, "home", "", "guest-side home directory (default "+executor.DefaultGuestHome+")")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format for keys: table, json, yaml")

	rootCmd.Flags().StringVar(&vmFlag, "vm", "", "restrict serve to a single domain")
	rootCmd.Flags().BoolVar(&onceFlag, "once", false, "perform a single pass over every domain and exit")
	rootCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "never invoke the shell; write synthesised results")
	rootCmd.Flags().IntVar(&workersFlag, "workers", 0, "worker pool size (default 8)")
	rootCmd.Flags().DurationVar(&pollIntervalFlag, "poll-interval", 0, "override remote.conf's poll interval")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func effectiveKeyDir() string {
	if keyDirFlag != "" {
		return keyDirFlag
	}
	return keystore.DefaultControlKeyDir()
}

func effectiveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func effectiveLogPath() string {
	if logPath != "" {
		return logPath
	}
	return audit.DefaultControlLogPath()
}

func effectiveGuestHome() string {
	if guestHome != "" {
		return guestHome
	}
	return executor.DefaultGuestHome
}
