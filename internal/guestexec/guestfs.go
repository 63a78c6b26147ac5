package guestexec

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// GuestFS composes a Primitive into the handful of filesystem
// operations the executor's per-domain worker actually needs: list a
// directory, read a file, write a file, remove a file. Every operation
// here is a single RunInDomain call, since run_in_domain is the only
// cross-domain primitive the platform exposes.
type GuestFS struct {
	Primitive Primitive
}

// NewGuestFS wraps p.
func NewGuestFS(p Primitive) *GuestFS {
	return &GuestFS{Primitive: p}
}

// ListDir returns the base names of the entries directly inside dir in
// domain (as `ls -1` prints them, so subdirectories are included), or
// an empty slice if dir does not exist.
func (g *GuestFS) ListDir(ctx context.Context, domain, dir string) ([]string, error) {
	cmd := fmt.Sprintf("ls -1 -- %s 2>/dev/null || true", shellQuote(dir))
	out, _, err := g.Primitive.RunInDomain(ctx, domain, cmd, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s in %s: %w", dir, domain, err)
	}
	var names []string
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

// ReadFile returns the contents of path in domain, or ok=false if it
// does not exist.
func (g *GuestFS) ReadFile(ctx context.Context, domain, path string) (data []byte, ok bool, err error) {
	cmd := fmt.Sprintf("cat -- %s 2>/dev/null && echo __QVM_REMOTE_OK__ || echo __QVM_REMOTE_MISSING__", shellQuote(path))
	out, _, err := g.Primitive.RunInDomain(ctx, domain, cmd, nil)
	if err != nil {
		return nil, false, fmt.Errorf("read %s in %s: %w", path, domain, err)
	}
	const okMarker = "__QVM_REMOTE_OK__\n"
	const missingMarker = "__QVM_REMOTE_MISSING__\n"
	s := string(out)
	if strings.HasSuffix(s, okMarker) {
		return []byte(strings.TrimSuffix(s, okMarker)), true, nil
	}
	if strings.HasSuffix(s, missingMarker) {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("read %s in %s: unrecognised response", path, domain)
}

// WriteFile creates path in domain with mode and contents data,
// streamed over stdin rather than spliced into the command string, so
// a payload is never bounded by the kernel's argv size limit.
func (g *GuestFS) WriteFile(ctx context.Context, domain, path string, data []byte, mode string) error {
	cmd := fmt.Sprintf("cat > %s && chmod %s %s", shellQuote(path), mode, shellQuote(path))
	_, exitCode, err := g.Primitive.RunInDomain(ctx, domain, cmd, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("write %s in %s: %w", path, domain, err)
	}
	if exitCode != 0 {
		return fmt.Errorf("write %s in %s: remote shell exited %d", path, domain, exitCode)
	}
	return nil
}

// RemoveFile unlinks path in domain. Removing an already-absent file is
// not an error.
func (g *GuestFS) RemoveFile(ctx context.Context, domain, path string) error {
	cmd := fmt.Sprintf("rm -f -- %s", shellQuote(path))
	_, _, err := g.Primitive.RunInDomain(ctx, domain, cmd, nil)
	if err != nil {
		return fmt.Errorf("remove %s in %s: %w", path, domain, err)
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
