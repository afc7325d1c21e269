// Package cas computes content fingerprints and writes files atomically.
//
// BLAKE3 is the primary fingerprint: it keys the per-run scan cache and is
// reported for every export. SHA-256 is kept next to it for tools that
// only understand that.
package cas

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest holds both fingerprints of a blob.
type Digest struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
}

// Sum computes both digests of data.
func Sum(data []byte) Digest {
	return Digest{
		SHA256: Hash(data),
		BLAKE3: Blake3Hash(data),
	}
}

// Hash computes the SHA-256 hash of the given data.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Blake3Hash computes the BLAKE3 hash of the given data.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Blake3String is Blake3Hash for text.
func Blake3String(s string) string {
	return Blake3Hash([]byte(s))
}
