package cmd

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/GabrieleRisso/qvm-remote/internal/audit"
	"github.com/GabrieleRisso/qvm-remote/internal/cliexit"
	"github.com/GabrieleRisso/qvm-remote/internal/keystore"
	"github.com/GabrieleRisso/qvm-remote/internal/protocol"
	"github.com/GabrieleRisso/qvm-remote/internal/queue"
	"github.com/spf13/cobra"
)

// pollInterval is the nominal sleep between result checks in the
// poll-for-result loop.
const pollInterval = 200 * time.Millisecond

// runSubmit implements submit(command, timeout): read the command body
// (argv, or stdin on a pipe), validate it, enqueue it, poll until a
// result bundle appears or the deadline passes, replay
// stdout/stderr/exit, and archive the transaction.
func runSubmit(cmd *cobra.Command, args []string) error {
	body, err := readCommandBody(cmd, args)
	if err != nil {
		return err
	}

	l, err := guestLayout()
	if err != nil {
		return cliexit.IOError("prepare queue directory: %w", err)
	}

	guestAudit, err := audit.Open(l.AuditLogPath(), audit.DefaultRotateCap)
	if err != nil {
		return cliexit.IOError("open audit log: %w", err)
	}
	defer guestAudit.Close()

	if err := protocol.ValidateCommand(body, protocol.MaxCommandBytes); err != nil {
		guestAudit.Log(audit.ErrorK, audit.F("reason", err.Error()))
		return cliexit.InvalidInput("%w", err)
	}

	key, _, ok, err := keystore.NewGuestKey(l.AuthKeyPath()).Load()
	if err != nil {
		return cliexit.IOError("load guest key: %w", err)
	}
	if !ok {
		return cliexit.NoKey("no key installed; run 'qvm-remote key gen' and have it authorised on the control domain")
	}

	cid, err := protocol.NewCID()
	if err != nil {
		return cliexit.IOError("generate request id: %w", err)
	}
	tag := protocol.Tag(key, cid)

	if err := l.Enqueue(queue.Request{CID: cid, Body: body, Tag: tag}); err != nil {
		guestAudit.Log(audit.ErrorK, audit.F("cid", cid), audit.F("reason", err.Error()))
		return cliexit.SubmitFailed("%w", err)
	}
	guestAudit.Log(audit.Submit, audit.F("cid", cid), audit.F("bytes_in", strconv.Itoa(len(body))))

	res, ok, err := pollForResult(l, cid, effectiveTimeout())
	if err != nil {
		return cliexit.IOError("%w", err)
	}
	if !ok {
		if cleanupErr := cleanupPending(l, cid); cleanupErr != nil {
			guestAudit.Log(audit.ErrorK, audit.F("cid", cid), audit.F("reason", cleanupErr.Error()))
		}
		return cliexit.TimeoutLocal("no result within %s", effectiveTimeout())
	}

	cmd.OutOrStdout().Write(res.Out)
	cmd.ErrOrStderr().Write(res.Err)

	guestAudit.Log(audit.Result, audit.F("cid", cid), audit.F("exit_code", strconv.Itoa(res.ExitCode)), audit.F("duration_ms", strconv.FormatInt(res.DurationMS, 10)))

	if err := l.Archive(time.Now(), cid, body, res); err != nil {
		guestAudit.Log(audit.ErrorK, audit.F("cid", cid), audit.F("reason", err.Error()))
	}
	if err := l.CleanupResult(cid); err != nil {
		guestAudit.Log(audit.ErrorK, audit.F("cid", cid), audit.F("reason", err.Error()))
	}

	RemoteExitCode = res.ExitCode
	return nil
}

// readCommandBody resolves submit()'s input: argv joined by spaces if
// given, otherwise stdin when it is a pipe. An interactive terminal
// with no argv and nothing piped is input-constraint violation, not a
// hang: submit() requires a non-empty command.
func readCommandBody(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) > 0 {
		joined := args[0]
		for _, a := range args[1:] {
			joined += " " + a
		}
		return []byte(joined), nil
	}

	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return nil, cliexit.IOError("read stdin: %w", err)
		}
		return data, nil
	}
	return nil, cliexit.InvalidInput("no command given: pass it as arguments or pipe it on stdin")
}

// pollForResult sleeps in pollInterval ticks until cid's result bundle
// appears in l's results directory or deadline expires.
func pollForResult(l *queue.Layout, cid string, timeout time.Duration) (queue.Result, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		res, ok, err := l.PollResult(cid)
		if err != nil {
			return queue.Result{}, false, err
		}
		if ok {
			return res, true, nil
		}
		if time.Now().After(deadline) {
			return queue.Result{}, false, nil
		}
		time.Sleep(pollInterval)
	}
}

// cleanupPending removes cid's pending pair after a local timeout, so
// a late executor pass doesn't act on a request the caller has already
// given up on. If the daemon has already claimed the request, it still
// writes the result bundle, and nothing in the submitter removes those
// result files later.
func cleanupPending(l *queue.Layout, cid string) error {
	pendingDir := l.PendingDir()
	var firstErr error
	for _, name := range []string{protocol.PendingAuthName(cid), protocol.PendingBodyName(cid)} {
		if err := os.Remove(filepath.Join(pendingDir, name)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
