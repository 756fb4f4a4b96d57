package wire

import (
	"fmt"

	"github.com/csnode/corenode/crypto/keys"
)

// GossipKind tags the payload carried inside a non-NetworkMsg frame, so a
// single dedup-by-hash broadcast path (Neighbourhood.SendByNeighbours/
// SendByConfidants) can carry the several message shapes the consensus
// core gossips: candidate blocks, pre-consensus transaction pools, and
// the three role-protocol messages. Spec §6 leaves the payload opaque;
// this one-byte prefix is the minimal addition needed to demultiplex it.
type GossipKind uint8

const (
	// PoolMsg carries a codec-encoded blockchain.Pool.
	PoolMsg GossipKind = iota
	// TransactionListMsg carries a codec-encoded TransactionsPacket.
	TransactionListMsg
	// RoundTableMsg carries a codec-encoded consensus.RoundTable.
	RoundTableMsg
	// VectorMsg carries a codec-encoded consensus.HashVector.
	VectorMsg
	// MatrixMsg carries a codec-encoded consensus.HashMatrix.
	MatrixMsg
)

func (k GossipKind) String() string {
	switch k {
	case PoolMsg:
		return "pool"
	case TransactionListMsg:
		return "transaction-list"
	case RoundTableMsg:
		return "round-table"
	case VectorMsg:
		return "vector"
	case MatrixMsg:
		return "matrix"
	default:
		return "unknown"
	}
}

// Envelope prefixes a gossiped payload with its GossipKind.
type Envelope struct {
	Kind GossipKind
	Body []byte
}

// Encode renders the envelope as kind(1) | body.
func (e *Envelope) Encode() []byte {
	buf := make([]byte, 1+len(e.Body))
	buf[0] = byte(e.Kind)
	copy(buf[1:], e.Body)
	return buf
}

// DecodeEnvelope parses an Envelope from its byte-exact layout.
func DecodeEnvelope(buf []byte) (*Envelope, error) {
	if len(buf) < 1 {
		return nil, fmt.Errorf("envelope too short: %d bytes", len(buf))
	}
	return &Envelope{Kind: GossipKind(buf[0]), Body: buf[1:]}, nil
}

// NewGossipPacket wraps an envelope of the given kind and body in a frame
// identifying sender, ready for Neighbourhood.SendByNeighbours/
// SendByConfidants. Gossip frames are never NetworkMsg and never
// fragmented, so they always carry the 32-byte sender key Neighbourhood
// needs to mark the originating peer as having seen the packet.
func NewGossipPacket(kind GossipKind, sender keys.PublicKey, body []byte) *Packet {
	env := &Envelope{Kind: kind, Body: body}
	frame := &Frame{PacketCount: 1, Sender: &sender, Payload: env.Encode()}
	return NewPacket(frame.Encode())
}
