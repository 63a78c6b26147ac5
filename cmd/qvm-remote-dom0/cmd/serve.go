package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/GabrieleRisso/qvm-remote/internal/audit"
	"github.com/GabrieleRisso/qvm-remote/internal/cliexit"
	"github.com/GabrieleRisso/qvm-remote/internal/config"
	"github.com/GabrieleRisso/qvm-remote/internal/executor"
	"github.com/GabrieleRisso/qvm-remote/internal/guestexec"
	"github.com/GabrieleRisso/qvm-remote/internal/keystore"
	"github.com/GabrieleRisso/qvm-remote/internal/sandbox"
	"github.com/spf13/cobra"
)

// runServe implements the daemon's main loop as the root command's
// default action: load the control-side config, key store and audit
// log, then hand off to the coordinator until a termination signal
// arrives.
func runServe(cmd *cobra.Command) error {
	a, err := audit.Open(effectiveLogPath(), audit.DefaultRotateCap)
	if err != nil {
		return cliexit.IOError("open audit log: %w", err)
	}
	defer a.Close()

	watcher, err := config.NewWatcher(effectiveConfigPath(), a)
	if err != nil {
		return cliexit.IOError("load config: %w", err)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := watcher.Start(ctx); err != nil {
		return cliexit.IOError("watch config: %w", err)
	}
	defer watcher.Stop()

	store := keystore.NewControlStore(effectiveKeyDir())

	coordinator := &executor.Coordinator{
		Primitive:    guestexec.NewQrexecPrimitive(),
		KeyStore:     store,
		Audit:        a,
		GuestHome:    effectiveGuestHome(),
		PollInterval: pollInterval(watcher),
		Workers:      workersFlag,
		DryRun:       dryRunFlag,
		SandboxOpts:  sandboxOptsFrom(watcher.Current()),
		MaxCmdBytes:  watcher.Current().MaxCmdBytes,
		OnlyDomain:   vmFlag,
	}

	domains := func() []string { return watcher.Current().Domains }

	fmt.Fprintf(cmd.ErrOrStderr(), "qvm-remote-dom0: serving (once=%v dry-run=%v)\n", onceFlag, dryRunFlag)
	if err := coordinator.Serve(ctx, domains, onceFlag); err != nil {
		return cliexit.IOError("serve: %w", err)
	}
	return nil
}

// pollInterval honours --poll-interval over remote.conf's
// QVM_REMOTE_POLL_INTERVAL, matching how --timeout overrides the
// submitter's own environment-derived default.
func pollInterval(watcher *config.Watcher) time.Duration {
	if pollIntervalFlag > 0 {
		return pollIntervalFlag
	}
	return time.Duration(watcher.Current().PollIntervalSeconds) * time.Second
}

func sandboxOptsFrom(cfg config.Config) sandbox.Options {
	return sandbox.Options{
		MaxOutputBytes: cfg.MaxOutBytes,
		Timeout:        time.Duration(cfg.ExecTimeoutSeconds) * time.Second,
	}
}
