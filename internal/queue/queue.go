// Package queue implements the guest-side queue directory layout: the
// pending/running/results/history tree rooted at ${HOME}/.qvm-remote/
// that the submitter writes into and polls, and the one-time migration
// from the tool's legacy ${HOME}/.qubes-remote/ layout.
package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GabrieleRisso/qvm-remote/internal/protocol"
)

const (
	currentDirName = ".qvm-remote"
	legacyDirName  = ".qubes-remote"
)

// Layout resolves the guest-side filesystem paths for one user's queue.
type Layout struct {
	Root string
}

// NewLayout returns the Layout rooted at ${HOME}/.qvm-remote.
func NewLayout(home string) *Layout {
	return &Layout{Root: filepath.Join(home, currentDirName)}
}

func (l *Layout) AuthKeyPath() string  { return filepath.Join(l.Root, "auth.key") }
func (l *Layout) AuditLogPath() string { return filepath.Join(l.Root, "audit.log") }
func (l *Layout) PendingDir() string   { return filepath.Join(l.Root, "queue", "pending") }
func (l *Layout) RunningDir() string   { return filepath.Join(l.Root, "queue", "running") }
func (l *Layout) ResultsDir() string   { return filepath.Join(l.Root, "queue", "results") }
func (l *Layout) HistoryDir() string   { return filepath.Join(l.Root, "history") }

// HistoryDayDir returns the per-day archive directory for t.
func (l *Layout) HistoryDayDir(t time.Time) string {
	return filepath.Join(l.HistoryDir(), t.UTC().Format("2006-01-02"))
}

// EnsureDirs creates every directory in the layout with the permissions
// required for the guest-side tree, running any pending legacy
// migration first.
func (l *Layout) EnsureDirs() error {
	if err := MigrateLegacy(filepath.Dir(l.Root)); err != nil {
		return err
	}
	dirs := []string{l.Root, l.PendingDir(), l.RunningDir(), l.ResultsDir(), l.HistoryDir()}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// MigrateLegacy renames ${home}/.qubes-remote to ${home}/.qvm-remote if
// the legacy directory exists and the current one does not. This must
// never merge two directories: if both are present, it fails loudly
// rather than guessing which one is authoritative.
func MigrateLegacy(home string) error {
	legacy := filepath.Join(home, legacyDirName)
	current := filepath.Join(home, currentDirName)

	legacyInfo, legacyErr := os.Stat(legacy)
	if legacyErr != nil {
		if os.IsNotExist(legacyErr) {
			return nil
		}
		return fmt.Errorf("stat legacy queue directory %s: %w", legacy, legacyErr)
	}
	if !legacyInfo.IsDir() {
		return nil
	}

	if _, err := os.Stat(current); err == nil {
		return fmt.Errorf("both legacy %s and current %s queue directories exist: refusing to merge, remove one manually", legacy, current)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", current, err)
	}

	if err := os.Rename(legacy, current); err != nil {
		return fmt.Errorf("migrate %s to %s: %w", legacy, current, err)
	}
	return nil
}

// Request is a pending entry about to be written by the submitter.
type Request struct {
	CID  string
	Body []byte
	Tag  string
}

// Enqueue writes the pending pair for req in a fixed order: the .auth
// sibling first, then the command body, so a daemon that observes the
// body file can assume the token already exists.
func (l *Layout) Enqueue(req Request) error {
	pendingDir := l.PendingDir()
	authPath := filepath.Join(pendingDir, protocol.PendingAuthName(req.CID))
	bodyPath := filepath.Join(pendingDir, protocol.PendingBodyName(req.CID))

	if err := os.WriteFile(authPath, []byte(req.Tag), 0o600); err != nil {
		return fmt.Errorf("write auth token for %s: %w", req.CID, err)
	}
	if err := os.WriteFile(bodyPath, req.Body, 0o600); err != nil {
		_ = os.Remove(authPath)
		return fmt.Errorf("write command body for %s: %w", req.CID, err)
	}
	return nil
}

// Result is a result bundle read back from the guest's results
// directory, or about to be archived into history.
type Result struct {
	CID          string
	Out          []byte
	Err          []byte
	ExitCode     int
	DurationMS   int64
	TruncatedOut bool
	TruncatedErr bool
	Timeout      bool
}

// PollResult returns the result bundle for cid if the exit marker is
// present, or ok=false if the request is still pending. The submitter
// calls this on every poll tick.
func (l *Layout) PollResult(cid string) (res Result, ok bool, err error) {
	resultsDir := l.ResultsDir()
	exitPath := filepath.Join(resultsDir, protocol.ResultExitName(cid))
	if _, statErr := os.Stat(exitPath); statErr != nil {
		if os.IsNotExist(statErr) {
			return Result{}, false, nil
		}
		return Result{}, false, fmt.Errorf("stat %s: %w", exitPath, statErr)
	}

	meta, err := readMeta(filepath.Join(resultsDir, protocol.ResultMetaName(cid)))
	if err != nil {
		return Result{}, false, err
	}
	out, err := os.ReadFile(filepath.Join(resultsDir, protocol.ResultOutName(cid)))
	if err != nil {
		return Result{}, false, fmt.Errorf("read stdout for %s: %w", cid, err)
	}
	errBytes, err := os.ReadFile(filepath.Join(resultsDir, protocol.ResultErrName(cid)))
	if err != nil {
		return Result{}, false, fmt.Errorf("read stderr for %s: %w", cid, err)
	}
	exitBytes, err := os.ReadFile(exitPath)
	if err != nil {
		return Result{}, false, fmt.Errorf("read exit code for %s: %w", cid, err)
	}

	res = Result{
		CID:          cid,
		Out:          out,
		Err:          errBytes,
		ExitCode:     meta.exitCode(string(exitBytes)),
		DurationMS:   meta.durationMS(),
		TruncatedOut: meta.flag("truncated_out"),
		TruncatedErr: meta.flag("truncated_err"),
		Timeout:      meta.flag("timeout"),
	}
	return res, true, nil
}

// CleanupResult removes the four result files for cid once the
// submitter has consumed them. It does not touch the pending pair,
// which the daemon unlinks before executing. A result file that is
// already gone is not an error.
func (l *Layout) CleanupResult(cid string) error {
	resultsDir := l.ResultsDir()
	for _, name := range []string{
		protocol.ResultOutName(cid),
		protocol.ResultErrName(cid),
		protocol.ResultExitName(cid),
		protocol.ResultMetaName(cid),
	} {
		if err := os.Remove(filepath.Join(resultsDir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

// Archive copies the command body and result bundle for cid into the
// per-day history directory for t. It is best-effort from the caller's
// point of view: a failure here should be logged, not fatal to the
// submission.
func (l *Layout) Archive(t time.Time, cid string, body []byte, res Result) error {
	dir := l.HistoryDayDir(t)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create history directory %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, cid+".cmd"), body, 0o600); err != nil {
		return fmt.Errorf("archive command body for %s: %w", cid, err)
	}
	if err := os.WriteFile(filepath.Join(dir, cid+".out"), res.Out, 0o600); err != nil {
		return fmt.Errorf("archive stdout for %s: %w", cid, err)
	}
	if err := os.WriteFile(filepath.Join(dir, cid+".err"), res.Err, 0o600); err != nil {
		return fmt.Errorf("archive stderr for %s: %w", cid, err)
	}
	fields := [][2]string{
		{"exit_code", fmt.Sprintf("%d", res.ExitCode)},
		{"duration_ms", fmt.Sprintf("%d", res.DurationMS)},
	}
	if err := WriteMeta(filepath.Join(dir, cid+".meta"), fields); err != nil {
		return fmt.Errorf("archive metadata for %s: %w", cid, err)
	}
	return nil
}
