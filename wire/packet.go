package wire

import "github.com/csnode/corenode/common"

// Packet is an opaque, already-encoded blob of bytes ready to hand to a
// Transport, identified by the content hash the neighbourhood's MsgRel
// dedup discipline keys broadcasts on. A Packet is built once by its
// producer and only read afterwards, so Hash's lazy caching is not
// synchronized.
type Packet struct {
	Bytes []byte

	hash   common.Hash
	hashed bool
}

// NewPacket wraps bytes for broadcast.
func NewPacket(bytes []byte) *Packet {
	return &Packet{Bytes: bytes}
}

// Hash returns the content hash identifying this packet, computing and
// caching it on first call.
func (p *Packet) Hash() common.Hash {
	if !p.hashed {
		p.hash = common.HashBytes(p.Bytes)
		p.hashed = true
	}
	return p.hash
}
