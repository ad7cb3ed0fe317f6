package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// idLen is the number of hex characters kept for short identifiers.
const idLen = 16

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ID returns a short stable identifier derived from s. The same input
// always yields the same id, across processes and restarts.
func ID(s string) string {
	return Sum([]byte(s))[:idLen]
}
