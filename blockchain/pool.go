package blockchain

import (
	"bytes"

	"github.com/csnode/corenode/common"
	"github.com/ugorji/go/codec"
)

// Sequence is a monotone block height. The local chain always has a
// well-defined LastSequence, initially 0.
type Sequence = uint64

// RoundNumber is a monotone consensus round counter.
type RoundNumber = uint64

// Transaction is an opaque, already-serialized transaction.
type Transaction []byte

// Pool is a candidate or finalized block body: the whole unit the core
// exchanges with peers and hands to BlockChain. The core only needs
// Hash, Sequence and byte-level equality; contents are otherwise opaque.
type Pool struct {
	Seq          Sequence      `codec:"seq"`
	Round        RoundNumber   `codec:"round"`
	PrevHash     common.Hash   `codec:"prevHash"`
	Writer       [32]byte      `codec:"writer"`
	Signature    [64]byte      `codec:"sig"`
	Transactions []Transaction `codec:"transactions"`
}

// Sequence returns the pool's block height.
func (p *Pool) Sequence() Sequence {
	return p.Seq
}

// Marshal renders the pool as canonical JSON, matching the encoding the
// rest of this codebase uses for wire payloads.
func (p *Pool) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Unmarshal decodes a pool previously produced by Marshal.
func (p *Pool) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)
	return dec.Decode(p)
}

// Hash returns the content hash of the pool's canonical encoding. Two
// pools with identical fields always hash identically.
func (p *Pool) Hash() common.Hash {
	data, err := p.Marshal()
	if err != nil {
		return common.Hash{}
	}
	return common.HashBytes(data)
}

// Equal reports byte-level equality between two pools.
func (p *Pool) Equal(other *Pool) bool {
	if other == nil {
		return false
	}
	a, err1 := p.Marshal()
	b, err2 := other.Marshal()
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// TransactionsPacket is the pre-consensus aggregate of pending
// transactions a node gossips and eventually folds into a Pool. It is
// what Normal state's periodic flush and the recovered
// spam generator produce.
type TransactionsPacket struct {
	Sender       [32]byte      `codec:"sender"`
	Transactions []Transaction `codec:"transactions"`
}

// Marshal renders the packet as canonical JSON.
func (t *TransactionsPacket) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Unmarshal decodes a packet previously produced by Marshal.
func (t *TransactionsPacket) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)
	return dec.Decode(t)
}

// Hash returns the content hash of the packet's canonical encoding.
func (t *TransactionsPacket) Hash() common.Hash {
	data, err := t.Marshal()
	if err != nil {
		return common.Hash{}
	}
	return common.HashBytes(data)
}
