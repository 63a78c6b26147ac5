package guestexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// QrexecPrimitive implements Primitive against the host's qrexec-style
// tooling: `qvm-run` to execute a command inside a domain as its normal
// user, and `qvm-check --running` to test domain state without ever
// starting it. Neither tool is invoked with a shell in between; the
// guest command string is passed through as a single argument, exactly
// as the platform tooling expects.
type QrexecPrimitive struct {
	// RunBin and CheckBin default to "qvm-run" and "qvm-check" and
	// exist only so tests can point at a stub binary.
	RunBin   string
	CheckBin string
}

// NewQrexecPrimitive returns a QrexecPrimitive using the platform's
// default tool names.
func NewQrexecPrimitive() *QrexecPrimitive {
	return &QrexecPrimitive{RunBin: "qvm-run", CheckBin: "qvm-check"}
}

func (q *QrexecPrimitive) runBin() string {
	if q.RunBin != "" {
		return q.RunBin
	}
	return "qvm-run"
}

func (q *QrexecPrimitive) checkBin() string {
	if q.CheckBin != "" {
		return q.CheckBin
	}
	return "qvm-check"
}

// IsDomainRunning shells out to `qvm-check --running <domain>`, which by
// construction never starts the domain it is asked about.
func (q *QrexecPrimitive) IsDomainRunning(ctx context.Context, domain string) (bool, error) {
	cmd := exec.CommandContext(ctx, q.checkBin(), "--running", domain)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("qvm-check --running %s: %w", domain, err)
}

// RunInDomain shells out to `qvm-run --pass-io <domain> <shellCommand>`,
// the qrexec tool's documented way to execute a command inside a
// running domain and stream its stdio both ways: --pass-io is what
// makes qvm-run connect the child's stdin to ours rather than /dev/null,
// which is what lets stdin carry a file payload of any size.
func (q *QrexecPrimitive) RunInDomain(ctx context.Context, domain string, shellCommand string, stdin io.Reader) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, q.runBin(), "--pass-io", domain, shellCommand)
	cmd.Stdin = stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), exitErr.ExitCode(), nil
	}
	return nil, -1, fmt.Errorf("qvm-run --pass-io %s: %w: %s", domain, err, strings.TrimSpace(stderr.String()))
}
