package cmd

import (
	"testing"

	"github.com/GabrieleRisso/qvm-remote/internal/audit"
	"github.com/stretchr/testify/require"
)

func TestLogCommandDefaultsToPlainTail(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	l, err := guestLayout()
	require.NoError(t, err)
	a, err := audit.Open(l.AuditLogPath(), 0)
	require.NoError(t, err)
	a.Log(audit.Submit, audit.F("cid", "20260305-100000-1-aaaaaaaa"))
	require.NoError(t, a.Close())

	out := execSubmitter(t, "log")
	require.Contains(t, out, "SUBMIT")
	require.Contains(t, out, "cid=20260305-100000-1-aaaaaaaa")
}

func TestLogCommandSupportsJSONOutput(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	l, err := guestLayout()
	require.NoError(t, err)
	a, err := audit.Open(l.AuditLogPath(), 0)
	require.NoError(t, err)
	a.Log(audit.Submit, audit.F("cid", "20260305-100000-1-bbbbbbbb"))
	require.NoError(t, a.Close())

	out := execSubmitter(t, "log", "--output", "json")
	require.Contains(t, out, "cid=20260305-100000-1-bbbbbbbb")
	require.Contains(t, out, "[")
}
