package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/GabrieleRisso/qvm-remote/internal/keystore"
	"github.com/GabrieleRisso/qvm-remote/internal/protocol"
	"github.com/GabrieleRisso/qvm-remote/internal/queue"
	"github.com/stretchr/testify/require"
)

// fakeExecutor watches l's pending directory for the one request it
// expects and writes back a canned result bundle, standing in for the
// control domain's executor daemon so submit() can be exercised without
// a real guest-exec primitive.
func fakeExecutor(t *testing.T, l *queue.Layout, exitCode int, stdout string) {
	t.Helper()
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			entries, err := os.ReadDir(l.PendingDir())
			if err == nil {
				for _, e := range entries {
					if strings.HasSuffix(e.Name(), ".auth") || !protocol.ValidCID(e.Name()) {
						continue
					}
					cid := e.Name()
					_ = os.Remove(filepath.Join(l.PendingDir(), protocol.PendingAuthName(cid)))
					_ = os.Remove(filepath.Join(l.PendingDir(), cid))
					writeFakeResult(l, cid, exitCode, stdout)
					return
				}
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()
}

// writeFakeResult writes the four result files directly, in the same
// .out/.err/.meta-then-.exit order the executor daemon uses, so the
// submitter's poll-on-.exit contract is exercised faithfully.
func writeFakeResult(l *queue.Layout, cid string, exitCode int, stdout string) {
	dir := l.ResultsDir()
	_ = os.WriteFile(filepath.Join(dir, protocol.ResultOutName(cid)), []byte(stdout), 0o600)
	_ = os.WriteFile(filepath.Join(dir, protocol.ResultErrName(cid)), nil, 0o600)
	_ = os.WriteFile(filepath.Join(dir, protocol.ResultMetaName(cid)), []byte("exit_code=0\nduration_ms=1\n"), 0o600)
	_ = os.WriteFile(filepath.Join(dir, protocol.ResultExitName(cid)), []byte(strconv.Itoa(exitCode)), 0o600)
}

func TestRunSubmitRoundTrips(t *testing.T) {
	timeoutSeconds = 0
	home := t.TempDir()
	t.Setenv("HOME", home)

	l, err := guestLayout()
	require.NoError(t, err)
	_, err = keystore.NewGuestKey(l.AuthKeyPath()).Generate(false)
	require.NoError(t, err)

	fakeExecutor(t, l, 0, "hi\n")

	out := execSubmitter(t, "echo", "hi")
	require.Equal(t, "hi\n", out)
	require.Equal(t, 0, RemoteExitCode)

	entries, err := os.ReadDir(l.HistoryDayDir(time.Now()))
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestRunSubmitPropagatesNonZeroExit(t *testing.T) {
	timeoutSeconds = 0
	home := t.TempDir()
	t.Setenv("HOME", home)

	l, err := guestLayout()
	require.NoError(t, err)
	_, err = keystore.NewGuestKey(l.AuthKeyPath()).Generate(false)
	require.NoError(t, err)

	fakeExecutor(t, l, 7, "")

	execSubmitter(t, "false")
	require.Equal(t, 7, RemoteExitCode)
}

func TestRunSubmitRefusesWithNoKey(t *testing.T) {
	timeoutSeconds = 0
	home := t.TempDir()
	t.Setenv("HOME", home)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"echo", "hi"})
	err := rootCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "no key installed")
}

func TestRunSubmitTimesOutWhenNoResultArrives(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	l, err := guestLayout()
	require.NoError(t, err)
	_, err = keystore.NewGuestKey(l.AuthKeyPath()).Generate(false)
	require.NoError(t, err)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--timeout", "1", "echo", "hi"})
	err = rootCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "no result within")
}
