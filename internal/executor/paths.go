package executor

import (
	"path"

	"github.com/GabrieleRisso/qvm-remote/internal/protocol"
)

// guestPaths builds the remote, forward-slash paths the executor
// addresses inside a guest's own filesystem. Unlike
// internal/queue.Layout, which manipulates the local filesystem for
// the submitter, these are plain strings handed to guestexec.GuestFS —
// the daemon never touches a guest's filesystem directly, only through
// the guest-exec primitive.
type guestPaths struct {
	home string
}

func newGuestPaths(home string) guestPaths {
	return guestPaths{home: home}
}

func (g guestPaths) root() string       { return path.Join(g.home, ".qvm-remote") }
func (g guestPaths) pendingDir() string { return path.Join(g.root(), "queue", "pending") }
func (g guestPaths) resultsDir() string { return path.Join(g.root(), "queue", "results") }

func (g guestPaths) pendingBody(cid string) string {
	return path.Join(g.pendingDir(), protocol.PendingBodyName(cid))
}

func (g guestPaths) pendingAuth(cid string) string {
	return path.Join(g.pendingDir(), protocol.PendingAuthName(cid))
}

func (g guestPaths) resultOut(cid string) string {
	return path.Join(g.resultsDir(), protocol.ResultOutName(cid))
}

func (g guestPaths) resultErr(cid string) string {
	return path.Join(g.resultsDir(), protocol.ResultErrName(cid))
}

func (g guestPaths) resultExit(cid string) string {
	return path.Join(g.resultsDir(), protocol.ResultExitName(cid))
}

func (g guestPaths) resultMeta(cid string) string {
	return path.Join(g.resultsDir(), protocol.ResultMetaName(cid))
}
