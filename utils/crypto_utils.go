package utils

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// HashParts computes a BLAKE2b-256 digest over a list of byte slices and returns it hex-encoded. Each part is prefixed
// with its length, so different splits of the same bytes yield different digests.
func HashParts(parts ...[]byte) (string, error) {
	// Create our hash function without a key
	hasher, err := blake2b.New256(nil)
	if err != nil {
		return "", errors.WithStack(err)
	}

	// Write each part preceded by its length
	var length [8]byte
	for _, part := range parts {
		binary.BigEndian.PutUint64(length[:], uint64(len(part)))
		hasher.Write(length[:])
		hasher.Write(part)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
