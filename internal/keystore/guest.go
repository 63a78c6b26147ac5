package keystore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GuestKey manages the single key file mirrored on the guest side, at
// ${HOME}/.qvm-remote/auth.key. Unlike ControlStore it never holds more
// than one key, so its API is deliberately narrower: generate, load,
// import.
type GuestKey struct {
	path string
}

// NewGuestKey returns a GuestKey backed by the file at path.
func NewGuestKey(path string) *GuestKey {
	return &GuestKey{path: path}
}

// Load returns the guest's key, or ok=false if `key gen`/`key import`
// has never been run.
func (g *GuestKey) Load() (key []byte, hexKey string, ok bool, err error) {
	key, ok, err = readKeyFile(g.path)
	if err != nil || !ok {
		return nil, "", ok, err
	}
	return key, hex.EncodeToString(key), true, nil
}

// Generate creates a new random 256-bit key and installs it, refusing to
// overwrite an existing key unless replace is true. The generated key
// must still be manually authorised on the control side before it is
// useful.
func (g *GuestKey) Generate(replace bool) (hexKey string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate key material: %w", err)
	}
	hexKey = hex.EncodeToString(raw)
	if err := writeKeyFile(g.path, hexKey, replace); err != nil {
		return "", err
	}
	return hexKey, nil
}

// Import installs a caller-supplied key, e.g. one already authorised on
// the control side and copied over by the operator out of band.
func (g *GuestKey) Import(hexKey string, replace bool) error {
	return writeKeyFile(g.path, hexKey, replace)
}
