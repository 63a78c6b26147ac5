package guestexec

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQrexecPrimitiveIsDomainRunning(t *testing.T) {
	ctx := context.Background()

	running := &QrexecPrimitive{CheckBin: "true"}
	ok, err := running.IsDomainRunning(ctx, "work")
	require.NoError(t, err)
	assert.True(t, ok)

	halted := &QrexecPrimitive{CheckBin: "false"}
	ok, err = halted.IsDomainRunning(ctx, "work")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQrexecPrimitiveRunInDomainNonZeroExit(t *testing.T) {
	q := &QrexecPrimitive{RunBin: "false"}
	_, exitCode, err := q.RunInDomain(context.Background(), "work", "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, exitCode)
}

func TestQrexecPrimitiveRunInDomainMissingBinary(t *testing.T) {
	q := &QrexecPrimitive{RunBin: "qvm-remote-nonexistent-binary"}
	_, _, err := q.RunInDomain(context.Background(), "work", "anything", nil)
	assert.Error(t, err)
}

func TestQrexecPrimitiveRunInDomainStreamsLargeStdin(t *testing.T) {
	// A stub that ignores --pass-io/domain/shellCommand entirely and
	// just relays stdin to stdout, standing in for qvm-run's real
	// --pass-io pipe. This proves a payload well past the
	// MAX_ARG_STRLEN an argv-embedded payload would be capped at
	// survives once it travels over stdin instead of the command line.
	stub := filepath.Join(t.TempDir(), "qvm-run-stub")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\nexec cat\n"), 0o755))

	q := &QrexecPrimitive{RunBin: stub}
	payload := bytes.Repeat([]byte("x"), 256*1024)
	out, exitCode, err := q.RunInDomain(context.Background(), "work", "unused", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, payload, out)
}
