package executor

import (
	"context"
	"encoding/hex"
	"path"
	"strings"
	"testing"

	"github.com/GabrieleRisso/qvm-remote/internal/audit"
	"github.com/GabrieleRisso/qvm-remote/internal/guestexec"
	"github.com/GabrieleRisso/qvm-remote/internal/keystore"
	"github.com/GabrieleRisso/qvm-remote/internal/protocol"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T, prim *guestexec.FakePrimitive, dryRun bool) (*Coordinator, *keystore.ControlStore) {
	t.Helper()
	a, err := audit.Open(path.Join(t.TempDir(), "audit.log"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	store := keystore.NewControlStore(t.TempDir())
	return &Coordinator{
		Primitive: prim,
		KeyStore:  store,
		Audit:     a,
		GuestHome: "/home/user",
		Workers:   2,
		DryRun:    dryRun,
	}, store
}

func seedPendingRequest(t *testing.T, prim *guestexec.FakePrimitive, domain, cid, body string, key []byte) {
	t.Helper()
	tag := protocol.Tag(key, cid)
	prim.PutFile(domain, path.Join("/home/user/.qvm-remote/queue/pending", protocol.PendingAuthName(cid)), []byte(tag))
	prim.PutFile(domain, path.Join("/home/user/.qvm-remote/queue/pending", protocol.PendingBodyName(cid)), []byte(body))
}

func TestServeOnceExecutesAuthenticatedRequest(t *testing.T) {
	domain := "work"
	prim := guestexec.NewFakePrimitive(domain)
	c, store := newTestCoordinator(t, prim, true)

	keyBytes := make([]byte, 32)
	for i := range keyBytes {
		keyBytes[i] = byte(i)
	}
	hexKey := hex.EncodeToString(keyBytes)
	require.NoError(t, store.Authorize(domain, hexKey, false))

	cid := "20260101-000000-1-deadbeef"
	seedPendingRequest(t, prim, domain, cid, "echo hi", keyBytes)

	require.NoError(t, c.Serve(context.Background(), func() []string { return []string{domain} }, true))

	out, ok := prim.GetFile(domain, path.Join("/home/user/.qvm-remote/queue/results", protocol.ResultOutName(cid)))
	require.True(t, ok)
	require.True(t, strings.HasPrefix(string(out), "[dry-run]"))

	exitBytes, ok := prim.GetFile(domain, path.Join("/home/user/.qvm-remote/queue/results", protocol.ResultExitName(cid)))
	require.True(t, ok)
	require.Equal(t, "0", string(exitBytes))

	// The pending pair must be gone: at-most-once execution.
	_, stillPending := prim.GetFile(domain, path.Join("/home/user/.qvm-remote/queue/pending", protocol.PendingBodyName(cid)))
	require.False(t, stillPending)
}

func TestServeOnceSkipsRequestWithNoKey(t *testing.T) {
	domain := "work"
	prim := guestexec.NewFakePrimitive(domain)
	c, _ := newTestCoordinator(t, prim, true)

	cid := "20260101-000000-1-00000001"
	seedPendingRequest(t, prim, domain, cid, "echo hi", make([]byte, 32))

	require.NoError(t, c.Serve(context.Background(), func() []string { return []string{domain} }, true))

	_, ok := prim.GetFile(domain, path.Join("/home/user/.qvm-remote/queue/results", protocol.ResultExitName(cid)))
	require.False(t, ok, "a domain with no installed key must never have its request executed")

	// Left alone: the key-absence policy never unlinks the pending pair.
	_, stillPending := prim.GetFile(domain, path.Join("/home/user/.qvm-remote/queue/pending", protocol.PendingBodyName(cid)))
	require.True(t, stillPending)
}

func TestServeOnceDiscardsRequestWithBadTag(t *testing.T) {
	domain := "work"
	prim := guestexec.NewFakePrimitive(domain)
	c, store := newTestCoordinator(t, prim, true)

	keyBytes := make([]byte, 32)
	for i := range keyBytes {
		keyBytes[i] = byte(i + 1)
	}
	require.NoError(t, store.Authorize(domain, hex.EncodeToString(keyBytes), false))

	cid := "20260101-000000-1-0000beef"
	wrongKey := make([]byte, 32)
	seedPendingRequest(t, prim, domain, cid, "echo hi", wrongKey)

	require.NoError(t, c.Serve(context.Background(), func() []string { return []string{domain} }, true))

	_, ok := prim.GetFile(domain, path.Join("/home/user/.qvm-remote/queue/results", protocol.ResultExitName(cid)))
	require.False(t, ok)
	_, stillPending := prim.GetFile(domain, path.Join("/home/user/.qvm-remote/queue/pending", protocol.PendingBodyName(cid)))
	require.False(t, stillPending, "a bad tag must still unlink the pending pair so it is not retried forever")
}

func TestServeOnceSkipsHaltedDomain(t *testing.T) {
	domain := "halted"
	prim := guestexec.NewFakePrimitive() // nothing running
	c, store := newTestCoordinator(t, prim, true)

	keyBytes := make([]byte, 32)
	require.NoError(t, store.Authorize(domain, hex.EncodeToString(keyBytes), false))

	cid := "20260101-000000-1-0000f00d"
	seedPendingRequest(t, prim, domain, cid, "echo hi", keyBytes)

	require.NoError(t, c.Serve(context.Background(), func() []string { return []string{domain} }, true))

	_, ok := prim.GetFile(domain, path.Join("/home/user/.qvm-remote/queue/results", protocol.ResultExitName(cid)))
	require.False(t, ok)
}

func TestMaxCmdBytesRejectsOversizedBody(t *testing.T) {
	domain := "work"
	prim := guestexec.NewFakePrimitive(domain)
	c, store := newTestCoordinator(t, prim, true)
	c.MaxCmdBytes = 4

	keyBytes := make([]byte, 32)
	require.NoError(t, store.Authorize(domain, hex.EncodeToString(keyBytes), false))

	cid := "20260101-000000-1-0000aaaa"
	seedPendingRequest(t, prim, domain, cid, "this body is far longer than four bytes", keyBytes)

	require.NoError(t, c.Serve(context.Background(), func() []string { return []string{domain} }, true))

	_, ok := prim.GetFile(domain, path.Join("/home/user/.qvm-remote/queue/results", protocol.ResultExitName(cid)))
	require.False(t, ok)
	_, stillPending := prim.GetFile(domain, path.Join("/home/user/.qvm-remote/queue/pending", protocol.PendingBodyName(cid)))
	require.False(t, stillPending)
}
