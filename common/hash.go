package common

import "golang.org/x/crypto/blake2b"

// Hash is a 32-byte content hash, used to identify Packets, Pools and
// Blocks. Same bytes always hash to the same Hash.
type Hash [32]byte

// HashBytes returns the blake2b-256 hash of data.
func HashBytes(data []byte) Hash {
	return blake2b.Sum256(data)
}

// String returns the hexadecimal representation of the hash.
func (h Hash) String() string {
	return EncodeToString(h[:])
}

// IsZero reports whether h is the zero-value hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}
