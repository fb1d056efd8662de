// Package checksum provides the content fingerprint used for change detection.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data. It is the only digest
// compared across import runs, so it must stay stable between releases.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex characters of Sum(data), used in log lines
// and history summaries where the full digest is noise.
func Short(data []byte) string {
	return Sum(data)[:12]
}
