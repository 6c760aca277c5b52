// Package digest computes content digests for deduplication. Digests are
// accumulated chunk-by-chunk so neither uploads nor on-disk files need to be
// resident in memory, and the streaming and whole-file paths yield identical
// results for identical bytes.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// Algorithm names the digest algorithm, recorded alongside stored digests.
const Algorithm = "sha256"

// Hasher accumulates a content digest incrementally.
type Hasher struct {
	h hash.Hash
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Write implements io.Writer; it never returns an error.
func (d *Hasher) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Sum returns the hex digest of everything written so far.
func (d *Hasher) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// Reader consumes r to EOF and returns its digest. Any read error aborts and
// propagates; callers must not proceed with a partial digest.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File streams the file at path through the hasher.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	sum, err := Reader(f)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return sum, nil
}

// Tee returns a reader that hashes everything read through it, so an upload
// can be written to its spool location and digested in one pass.
func Tee(r io.Reader) (io.Reader, *Hasher) {
	h := NewHasher()
	return io.TeeReader(r, h), h
}
