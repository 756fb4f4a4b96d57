package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"

	"github.com/csnode/corenode/common"
	"golang.org/x/crypto/blake2b"
)

// PublicKey is the 32-byte peer identity derived from a secp256k1 public
// key. Two peers with identical PublicKey values are the same logical peer
// regardless of endpoint.
type PublicKey [32]byte

// String returns the hexadecimal representation of the identity.
func (p PublicKey) String() string {
	return common.EncodeToString(p[:])
}

// IsZero reports whether p is the zero-value identity.
func (p PublicKey) IsZero() bool {
	return p == PublicKey{}
}

// ToPublicKey is a wrapper around elliptic.Unmarshal which calls Curve() to
// determine which elliptic.Curve to use. The argument pub is expected to be
// the uncompressed form of a point on the curve, as returned by
// FromPublicKey.
func ToPublicKey(pub []byte) *ecdsa.PublicKey {
	if len(pub) == 0 {
		return nil
	}
	x, y := elliptic.Unmarshal(Curve(), pub)
	return &ecdsa.PublicKey{Curve: Curve(), X: x, Y: y}
}

// FromPublicKey is a wrapper around elliptic.Marshal which calls Curve() to
// determine which elliptic.Curve to use. It outputs the point in
// uncompressed form.
func FromPublicKey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.Marshal(Curve(), pub.X, pub.Y)
}

// Identity derives the 32-byte wire identity of an ecdsa public key by
// blake2b-256 hashing its compressed point encoding. The underlying key
// algorithm is an external collaborator; this 32-byte shape is the wire
// contract that Peer and the rest of the neighbourhood operate on.
func Identity(pub *ecdsa.PublicKey) PublicKey {
	var out PublicKey
	if pub == nil || pub.X == nil || pub.Y == nil {
		return out
	}
	compressed := elliptic.MarshalCompressed(Curve(), pub.X, pub.Y)
	out = blake2b.Sum256(compressed)
	return out
}

// PublicKeyHex returns the hexadecimal representation of the uncompressed
// form of the public key.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return common.EncodeToString(FromPublicKey(pub))
}
