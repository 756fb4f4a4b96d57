package neighbourhood

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/common"
	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/net"
	"github.com/csnode/corenode/peers"
	"github.com/csnode/corenode/wire"
)

// ErrCapacity is returned by Register when both the total connection
// count and the active neighbour count are already at their limits.
var ErrCapacity = errors.New("neighbourhood: at capacity")

// LocalSequenceFunc returns the caller's current chain tip, used by the
// selection protocols to prefer peers that are ahead.
type LocalSequenceFunc func() blockchain.Sequence

// Neighbourhood owns the peer registry: every known identity keyed by
// PublicKey, the subset currently selected as active gossip neighbours,
// and the subset promoted to confidant for the running round.
//
// Two mutexes guard disjoint state, mirroring the original's nLockFlag_
// (neighbours + confidants) and mLockFlag_ (connections map): no handler
// ever holds both while performing transport I/O.
type Neighbourhood struct {
	transport     net.Transport
	localSequence LocalSequenceFunc
	logger        *logrus.Entry

	nMu        sync.Mutex
	neighbours []*peers.Peer
	confidants []*peers.Peer

	cMu         sync.Mutex
	connections map[keys.PublicKey]*peers.Peer

	pendingMu sync.Mutex
	pending   map[common.Hash]*broadcastRecord
}

// NewNeighbourhood constructs a Neighbourhood bound to transport, wiring
// its connect/disconnect callbacks so newly reachable peers are
// registered and dropped ones are pulled from the active sets
// automatically (grounded on the original's gotRegistration/
// disconnectNode flow).
func NewNeighbourhood(transport net.Transport, localSequence LocalSequenceFunc, logger *logrus.Entry) *Neighbourhood {
	n := &Neighbourhood{
		transport:     transport,
		localSequence: localSequence,
		logger:        logger,
		connections:   make(map[keys.PublicKey]*peers.Peer),
		pending:       make(map[common.Hash]*broadcastRecord),
	}
	transport.OnPeerConnected(n.HandlePeerConnected)
	transport.OnPeerDisconnected(n.HandlePeerDisconnected)
	return n
}

// Register inserts or updates the peer identified by key. On an endpoint
// change for an already-known peer, the old endpoint is simply
// overwritten. Fails with ErrCapacity if the peer is unknown and both the
// total and neighbour capacities are already full.
func (n *Neighbourhood) Register(key keys.PublicKey, endpoint peers.Endpoint, class peers.Class) (*peers.Peer, error) {
	n.cMu.Lock()
	defer n.cMu.Unlock()

	if p, ok := n.connections[key]; ok {
		if p.Endpoint() != endpoint {
			p.SetInboundEndpoint(endpoint)
		}
		return p, nil
	}

	if len(n.connections) >= MaxConnections {
		n.nMu.Lock()
		neighboursFull := len(n.neighbours) >= MaxNeighbours
		n.nMu.Unlock()
		if neighboursFull {
			return nil, ErrCapacity
		}
	}

	p := peers.NewPeer(key, endpoint, class, MaxMessagesToKeep)
	n.connections[key] = p
	return p, nil
}

// HandlePeerConnected registers a peer reachable via a live transport
// connection. Wired as the net.Transport OnPeerConnected callback.
func (n *Neighbourhood) HandlePeerConnected(key keys.PublicKey, endpoint peers.Endpoint) {
	if _, err := n.Register(key, endpoint, peers.Neighbour); err != nil {
		n.logger.WithError(err).WithField("peer", key).Warn("peer connected but could not be registered")
	}
}

// HandlePeerDisconnected drops a peer from the active gossip and
// confidant sets, leaving its identity in the connections registry so
// reconnection resumes existing state. Wired as the net.Transport
// OnPeerDisconnected callback.
func (n *Neighbourhood) HandlePeerDisconnected(key keys.PublicKey) {
	n.nMu.Lock()
	n.neighbours = removePeerByKey(n.neighbours, key)
	n.confidants = removePeerByKey(n.confidants, key)
	n.nMu.Unlock()
}

// ChooseNeighbours resamples the active neighbour set from all known,
// non-black-listed, non-signal-server connections: peers whose advertised
// sequence is at least the local tip are preferred over those behind it,
// with uniform random ordering within each group, capped at
// MaxNeighbours.
func (n *Neighbourhood) ChooseNeighbours() {
	n.cMu.Lock()
	candidates := make([]*peers.Peer, 0, len(n.connections))
	for _, p := range n.connections {
		if p.Class() == peers.SignalServer || p.IsBlackListed() {
			continue
		}
		candidates = append(candidates, p)
	}
	n.cMu.Unlock()

	localSeq := n.currentSequence()

	var ahead, behind []*peers.Peer
	for _, p := range candidates {
		if p.AdvertisedSequence() >= localSeq {
			ahead = append(ahead, p)
		} else {
			behind = append(behind, p)
		}
	}
	rand.Shuffle(len(ahead), func(i, j int) { ahead[i], ahead[j] = ahead[j], ahead[i] })
	rand.Shuffle(len(behind), func(i, j int) { behind[i], behind[j] = behind[j], behind[i] })

	selected := append(ahead, behind...)
	if len(selected) > MaxNeighbours {
		selected = selected[:MaxNeighbours]
	}

	n.nMu.Lock()
	n.neighbours = selected
	n.nMu.Unlock()
}

// GetRandomSyncNeighbour returns a currently active neighbour whose
// advertised sequence strictly exceeds the local tip, uniformly chosen
// among those that qualify. ok is false if none do.
func (n *Neighbourhood) GetRandomSyncNeighbour() (peer *peers.Peer, ok bool) {
	localSeq := n.currentSequence()

	n.nMu.Lock()
	defer n.nMu.Unlock()

	var candidates []*peers.Peer
	for _, p := range n.neighbours {
		if p.AdvertisedSequence() > localSeq {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[rand.Intn(len(candidates))], true
}

// SetConfidants replaces the current round's confidant set, demoting the
// previous confidants back to Neighbour class and promoting the new
// selection. Mirrors the original's addConfidant/removeConfidants pair,
// collapsed into a single round-boundary call.
func (n *Neighbourhood) SetConfidants(selected []*peers.Peer) {
	n.nMu.Lock()
	defer n.nMu.Unlock()

	for _, p := range n.confidants {
		p.SetClass(peers.Neighbour)
	}
	for _, p := range selected {
		p.SetClass(peers.Confidant)
	}
	n.confidants = append([]*peers.Peer(nil), selected...)
}

// ForEachNeighbour invokes cb once per currently active neighbour, over a
// snapshot taken under lock so cb never runs while the neighbour set is
// being mutated.
func (n *Neighbourhood) ForEachNeighbour(cb func(*peers.Peer)) {
	n.nMu.Lock()
	snapshot := append([]*peers.Peer(nil), n.neighbours...)
	n.nMu.Unlock()
	for _, p := range snapshot {
		cb(p)
	}
}

// Size returns the number of currently active neighbours.
func (n *Neighbourhood) Size() int {
	n.nMu.Lock()
	defer n.nMu.Unlock()
	return len(n.neighbours)
}

// Strike records a fault against peer. Once its strike count reaches
// StrikesUntilBlackList the peer is black-listed and pulled from the
// active neighbour and confidant sets; black-listing is terminal until
// the peer record is discarded.
func (n *Neighbourhood) Strike(peer *peers.Peer) {
	strikes := peer.AddStrike()
	if strikes < StrikesUntilBlackList {
		return
	}
	peer.SetBlackListed(true)

	n.nMu.Lock()
	n.neighbours = removePeerByKey(n.neighbours, peer.Key())
	n.confidants = removePeerByKey(n.confidants, peer.Key())
	n.nMu.Unlock()
}

// NeighbourHasPacket records that peer has already seen hash, whether
// because it sent the packet to us or acknowledged receiving it, so
// future broadcasts and pending retries skip it. isDirect marks a
// confidant-directed acknowledgement as opposed to a broadcast one; both
// are recorded the same way.
func (n *Neighbourhood) NeighbourHasPacket(peer *peers.Peer, hash common.Hash, isDirect bool) {
	peer.MarkSeen(hash)

	n.pendingMu.Lock()
	if rec, ok := n.pending[hash]; ok {
		rec.ack(peer.Key())
		if rec.done() {
			delete(n.pending, hash)
		}
	}
	n.pendingMu.Unlock()
}

// SendByNeighbours broadcasts pack to every current neighbour that has
// not already seen its hash.
func (n *Neighbourhood) SendByNeighbours(pack *wire.Packet) {
	n.nMu.Lock()
	targets := append([]*peers.Peer(nil), n.neighbours...)
	n.nMu.Unlock()
	n.broadcast(pack, targets)
}

// SendByConfidants directs pack to every current confidant that has not
// already seen its hash, under the same dedup discipline as
// SendByNeighbours.
func (n *Neighbourhood) SendByConfidants(pack *wire.Packet) {
	n.nMu.Lock()
	targets := append([]*peers.Peer(nil), n.confidants...)
	n.nMu.Unlock()
	n.broadcast(pack, targets)
}

func (n *Neighbourhood) broadcast(pack *wire.Packet, targets []*peers.Peer) {
	if len(targets) == 0 {
		return
	}
	hash := pack.Hash()

	n.pendingMu.Lock()
	rec, exists := n.pending[hash]
	if !exists {
		rec = newBroadcastRecord(pack, targets)
		n.pending[hash] = rec
	}
	n.pendingMu.Unlock()

	for _, p := range targets {
		if p.HasSeen(hash) {
			n.pendingMu.Lock()
			rec.ack(p.Key())
			n.pendingMu.Unlock()
			continue
		}
		if err := n.transport.Send(p.Endpoint(), pack.Bytes); err != nil {
			n.logger.WithError(err).WithField("peer", p.Key()).Warn("broadcast send failed")
			continue
		}
		p.MarkSeen(hash)
	}

	n.pendingMu.Lock()
	if rec.done() {
		delete(n.pending, hash)
	}
	n.pendingMu.Unlock()
}

// ResendPending re-sends every still-outstanding broadcast or directed
// packet to the peers that have not yet acknowledged it. A peer whose
// attempts on a given packet exceed MaxResendTimes is struck and dropped
// from that packet's pending set.
func (n *Neighbourhood) ResendPending() {
	n.pendingMu.Lock()
	defer n.pendingMu.Unlock()

	for hash, rec := range n.pending {
		for key, p := range rec.remaining {
			if p.HasSeen(hash) {
				rec.ack(key)
				continue
			}

			rec.attempts[key]++
			if rec.attempts[key] > MaxResendTimes {
				rec.ack(key)
				n.Strike(p)
				continue
			}

			if err := n.transport.Send(p.Endpoint(), rec.pack.Bytes); err != nil {
				n.logger.WithError(err).WithField("peer", key).Warn("resend failed")
			}
		}

		if rec.done() {
			delete(n.pending, hash)
		}
	}
}

func (n *Neighbourhood) currentSequence() blockchain.Sequence {
	if n.localSequence == nil {
		return 0
	}
	return n.localSequence()
}

func removePeerByKey(list []*peers.Peer, key keys.PublicKey) []*peers.Peer {
	for i, p := range list {
		if p.Key() == key {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
