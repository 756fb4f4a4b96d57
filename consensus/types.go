package consensus

import (
	"bytes"

	"github.com/ugorji/go/codec"

	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/common"
	"github.com/csnode/corenode/crypto/keys"
)

// HashVector is one confidant's round contribution to the Trusted state's
// first accumulation phase: an opaque hash of whatever the node computed
// locally (e.g. over the transaction pool it assembled). The core treats
// its payload as opaque; only Sender/Round/Hash matter for completeness
// and dedup.
type HashVector struct {
	Sender keys.PublicKey
	Round  blockchain.RoundNumber
	Hash   common.Hash
}

// Marshal renders the vector as canonical JSON, matching the encoding
// blockchain.Pool uses for wire payloads.
func (v *HashVector) Marshal() ([]byte, error) {
	return marshalCanonical(v)
}

// Unmarshal decodes a vector previously produced by Marshal.
func (v *HashVector) Unmarshal(data []byte) error {
	return unmarshalCanonical(data, v)
}

// HashMatrix is one confidant's round contribution to the Trusted state's
// second accumulation phase, exchanged after vectors, folding every
// confidant's vector into a single cross-checked matrix.
type HashMatrix struct {
	Sender keys.PublicKey
	Round  blockchain.RoundNumber
	Hash   common.Hash
}

// Marshal renders the matrix as canonical JSON.
func (m *HashMatrix) Marshal() ([]byte, error) {
	return marshalCanonical(m)
}

// Unmarshal decodes a matrix previously produced by Marshal.
func (m *HashMatrix) Unmarshal(data []byte) error {
	return unmarshalCanonical(data, m)
}

func marshalCanonical(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func unmarshalCanonical(data []byte, v interface{}) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)
	return dec.Decode(v)
}

// TransactionList is the pre-consensus aggregate Normal's periodic flush
// produces and on_transaction_list receives, reusing blockchain's wire
// shape rather than redefining an equivalent struct.
type TransactionList = blockchain.TransactionsPacket
