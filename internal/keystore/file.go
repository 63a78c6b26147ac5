// Package keystore persists the per-domain shared secrets: one 256-bit
// key per authorised guest domain on the control side, and a single
// mirrored key on the guest side. Both sides
// share the same on-disk format (64 lowercase hex characters, mode 0600,
// inside a mode-0700 directory) and the same load/validate helpers; they
// differ only in how many keys they manage.
package keystore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/GabrieleRisso/qvm-remote/internal/protocol"
)

// DirMode and FileMode are the filesystem permissions for key
// directories and key files respectively.
const (
	DirMode  os.FileMode = 0o700
	FileMode os.FileMode = 0o600
)

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return fmt.Errorf("create key directory %s: %w", dir, err)
	}
	// MkdirAll does not enforce the mode on an already-existing directory.
	if err := os.Chmod(dir, DirMode); err != nil {
		return fmt.Errorf("chmod key directory %s: %w", dir, err)
	}
	return nil
}

// readKeyFile loads and validates the hex key stored at path. A missing
// file is reported via the ok return, not an error, since "no key on
// file" is an expected, meaningful state.
func readKeyFile(path string) (key []byte, ok bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read key %s: %w", path, err)
	}
	hexKey := trimTrailingNewline(raw)
	key, verr := protocol.ValidateKeyHex(string(hexKey))
	if verr != nil {
		return nil, false, fmt.Errorf("key %s: %w", path, verr)
	}
	return key, true, nil
}

// writeKeyFile writes hexKey to path with FileMode, creating the parent
// directory with DirMode if needed. If the file already exists and
// replace is false, it refuses to overwrite.
func writeKeyFile(path string, hexKey string, replace bool) error {
	if _, err := protocol.ValidateKeyHex(hexKey); err != nil {
		return err
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if !replace {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("key %s already exists (use replace to overwrite)", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(hexKey+"\n"), FileMode); err != nil {
		return fmt.Errorf("write key %s: %w", path, err)
	}
	if err := os.Chmod(tmp, FileMode); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chmod key %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("install key %s: %w", path, err)
	}
	return nil
}

func trimTrailingNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
