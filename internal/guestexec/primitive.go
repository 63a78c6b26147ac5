// Package guestexec defines the one cross-domain operation the executor
// daemon is allowed to use: a host-initiated primitive that lists,
// reads, and writes files inside a guest's own filesystem and runs a
// shell command there, without ever opening a network socket between
// the two domains and without ever starting a halted domain as a side
// effect.
package guestexec

import (
	"context"
	"io"
)

// Primitive is the guest-exec contract the executor daemon is built
// around: run_in_domain(d, shell_command, stdin) -> (stdout_bytes,
// exit_code). The worker pool only ever calls through this interface,
// never exec.Command directly, so tests can substitute FakePrimitive
// without touching the worker logic. Dry-run mode keeps the same
// Primitive and swaps only the sandbox step.
type Primitive interface {
	// IsDomainRunning reports whether d is currently running. The
	// per-domain worker skips a domain entirely, without ever calling
	// RunInDomain, when this returns false.
	IsDomainRunning(ctx context.Context, domain string) (bool, error)

	// RunInDomain executes shellCommand inside domain as the guest's
	// normal user, streaming stdin to it if non-nil, and returns its
	// combined stdout. It must never start a halted domain; callers are
	// expected to have already checked IsDomainRunning. stdin exists so
	// a caller can hand a file payload to the command body (e.g. via a
	// "cat > dest" pipeline) instead of splicing the payload into
	// shellCommand itself, which would run into the kernel's argv size
	// limit for anything beyond a few KB.
	RunInDomain(ctx context.Context, domain string, shellCommand string, stdin io.Reader) (stdout []byte, exitCode int, err error)
}
