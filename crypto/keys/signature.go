package keys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Signature is the fixed-size rendezvous key shape used throughout the
// synchronous acknowledgement primitive: the R and S values of an ECDSA
// signature, each padded to 32 bytes, concatenated.
type Signature [64]byte

// Sign signs the data with the private key and the built-in pseudo-random
// generator rand.Reader, returning the fixed-size R||S encoding.
func Sign(priv *ecdsa.PrivateKey, data []byte) (Signature, error) {
	r, s, err := ecdsa.Sign(rand.Reader, priv, data)
	if err != nil {
		return Signature{}, err
	}
	return EncodeSignature(r, s), nil
}

// Verify verifies that sig is a valid signature of data by the owner of pub.
func Verify(pub *ecdsa.PublicKey, data []byte, sig Signature) bool {
	r, s := DecodeSignature(sig)
	return ecdsa.Verify(pub, data, r, s)
}

// EncodeSignature packs r and s into the fixed 64-byte rendezvous key shape.
func EncodeSignature(r, s *big.Int) Signature {
	var out Signature
	rb := paddedBigBytes(r, 32)
	sb := paddedBigBytes(s, 32)
	copy(out[0:32], rb)
	copy(out[32:64], sb)
	return out
}

// DecodeSignature unpacks a fixed 64-byte rendezvous key back into its r, s
// values.
func DecodeSignature(sig Signature) (r, s *big.Int) {
	r = new(big.Int).SetBytes(sig[0:32])
	s = new(big.Int).SetBytes(sig[32:64])
	return r, s
}

// EncodeSignatureString returns a human-readable string representation of a
// signature, as used in logs.
func EncodeSignatureString(sig Signature) string {
	r, s := DecodeSignature(sig)
	return fmt.Sprintf("%s|%s", r.Text(36), s.Text(36))
}

// DecodeSignatureString parses a string representation of a signature as
// produced by EncodeSignatureString.
func DecodeSignatureString(enc string) (Signature, error) {
	values := strings.Split(enc, "|")
	if len(values) != 2 {
		return Signature{}, fmt.Errorf("wrong number of values in signature: got %d, want 2", len(values))
	}
	r, ok := new(big.Int).SetString(values[0], 36)
	if !ok {
		return Signature{}, fmt.Errorf("invalid r value in signature")
	}
	s, ok := new(big.Int).SetString(values[1], 36)
	if !ok {
		return Signature{}, fmt.Errorf("invalid s value in signature")
	}
	return EncodeSignature(r, s), nil
}
