package manifest

import (
	"encoding/hex"
	"io"

	"github.com/zeebo/blake3"
)

// ComputeHash returns the BLAKE3-256 hex digest of an already canonical
// encoding. Empty input yields "".
func ComputeHash(canonical []byte) string {
	if len(canonical) == 0 {
		return ""
	}
	sum := blake3.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// DigestWriter hashes everything written through it.
type DigestWriter struct {
	w io.Writer
	h *blake3.Hasher
}

// NewDigestWriter wraps w. Pass io.Discard to only hash.
func NewDigestWriter(w io.Writer) *DigestWriter {
	return &DigestWriter{w: w, h: blake3.New()}
}

func (d *DigestWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	_, _ = d.h.Write(p[:n])
	return n, err
}

// Digest returns the hex digest of the bytes written so far.
func (d *DigestWriter) Digest() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
