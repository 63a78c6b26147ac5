package cmd

import (
	"testing"
	"time"

	"github.com/GabrieleRisso/qvm-remote/internal/queue"
	"github.com/stretchr/testify/require"
)

func TestListHistoryReadsArchivedMeta(t *testing.T) {
	home := t.TempDir()
	l := queue.NewLayout(home)
	require.NoError(t, l.EnsureDirs())

	ts := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, l.Archive(ts, "20260305-100000-1-aaaaaaaa", []byte("echo hi"), queue.Result{
		Out: []byte("hi\n"), ExitCode: 0, DurationMS: 842,
	}))

	entries, err := listHistory(l.HistoryDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	require.Equal(t, "20260305-100000-1-aaaaaaaa", e.cid)
	require.Equal(t, "0", e.exitCode)
	require.EqualValues(t, 842, e.durationMS)
	require.True(t, e.submittedAt.Equal(ts))
}

func TestHistoryCommandRendersWhenColumn(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	l := queue.NewLayout(home)
	require.NoError(t, l.EnsureDirs())
	require.NoError(t, l.Archive(time.Now(), "20260305-100000-1-bbbbbbbb", []byte("echo hi"), queue.Result{
		Out: []byte("hi\n"), ExitCode: 0, DurationMS: 5,
	}))

	out := execSubmitter(t, "history")
	require.Contains(t, out, "WHEN")
	require.Contains(t, out, "20260305-100000-1-bbbbbbbb")
}

func TestHistoryCommandSupportsJSONAndYAMLOutput(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	l := queue.NewLayout(home)
	require.NoError(t, l.EnsureDirs())
	require.NoError(t, l.Archive(time.Now(), "20260305-100000-1-cccccccc", []byte("echo hi"), queue.Result{
		Out: []byte("hi\n"), ExitCode: 0, DurationMS: 5,
	}))

	jsonOut := execSubmitter(t, "history", "--output", "json")
	require.Contains(t, jsonOut, `"cid": "20260305-100000-1-cccccccc"`)

	yamlOut := execSubmitter(t, "history", "-o", "yaml")
	require.Contains(t, yamlOut, "cid: 20260305-100000-1-cccccccc")
}
