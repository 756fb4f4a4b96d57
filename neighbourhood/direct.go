package neighbourhood

import (
	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/peers"
	"github.com/csnode/corenode/wire"
)

// SendTo delivers payload directly to peer's endpoint, framed as a
// NetworkMsg (no sender-key, no fragmentation). Used for request/reply
// protocol traffic that is correlated by packet ID rather than gossiped
// and deduplicated by content hash, e.g. PoolSynchronizer's block
// requests and replies.
func (n *Neighbourhood) SendTo(peer *peers.Peer, payload []byte, idLo uint16) error {
	frame := &wire.Frame{Flags: wire.NetworkMsg, IDLo: idLo, PacketCount: 1, Payload: payload}
	return n.transport.Send(peer.Endpoint(), frame.Encode())
}

// Lookup returns the registered peer for key, if any.
func (n *Neighbourhood) Lookup(key keys.PublicKey) (*peers.Peer, bool) {
	n.cMu.Lock()
	defer n.cMu.Unlock()
	p, ok := n.connections[key]
	return p, ok
}

// Snapshot returns every currently active neighbour, a copy safe to range
// over without holding the neighbourhood's lock.
func (n *Neighbourhood) Snapshot() []*peers.Peer {
	n.nMu.Lock()
	defer n.nMu.Unlock()
	return append([]*peers.Peer(nil), n.neighbours...)
}
