package keystore

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintLen is the number of hex characters shown for a key
// fingerprint — enough to distinguish keys at a glance in `keys` output
// without printing anything close to a full digest of the secret.
const fingerprintLen = 12

// Fingerprint computes a short, non-secret display identifier for a key.
// It deliberately uses BLAKE3 rather than SHA-256: the HMAC tags that
// travel over the wire are already hex-encoded SHA-256 MACs, and giving
// the fingerprint a visually and algorithmically distinct family makes it
// harder for an operator to mistake one for the other when staring at a
// terminal.
func Fingerprint(key []byte) string {
	h := blake3.New()
	h.Write(key)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:fingerprintLen]
}
