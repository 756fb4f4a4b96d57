package peers

import (
	"sync"

	"github.com/csnode/corenode/common"
	"github.com/csnode/corenode/crypto/keys"
)

// msgRel records whether a packet hash has already been relayed to (or
// received from) a peer, mirroring the original Connection::MsgRel.
type msgRel struct {
	needSend bool
}

// Peer is a registered remote node: its identity, its current endpoints,
// and the bounded bookkeeping the neighbourhood needs to gossip with it
// safely. A Peer is created on first registration and destroyed when
// pruned for inactivity.
type Peer struct {
	mu sync.RWMutex

	key   keys.PublicKey
	class Class

	in  Endpoint
	out Endpoint
	// hasOut is true when out overrides in, matching the original
	// Connection::specialOut / getOut() semantics.
	hasOut bool

	lastSequence uint64

	remote *RemoteNode

	msgRel *common.FixedMap[common.Hash, msgRel]

	// attempts counts retransmissions of the currently outstanding
	// request/packet to this peer, reset once acked or dropped.
	attempts int

	// requested is this peer's outstanding block-sync request queue.
	// Owned by PoolSynchronizer,
	// which is the sole mutator on the scheduler's consumer goroutine;
	// the mutex here only protects the pointer swap-free field access
	// from concurrent readers such as diagnostics.
	requested *RequestQueue
}

// NewPeer creates a Peer identified by key, with an inbound Endpoint and a
// per-peer MsgRel dedup map bounded to maxMessagesToKeep entries.
func NewPeer(key keys.PublicKey, in Endpoint, class Class, maxMessagesToKeep int) *Peer {
	return &Peer{
		key:       key,
		class:     class,
		in:        in,
		remote:    NewRemoteNode(),
		msgRel:    common.NewFixedMap[common.Hash, msgRel](maxMessagesToKeep),
		requested: NewRequestQueue(),
	}
}

// Requested returns the peer's outstanding block-sync request queue.
func (p *Peer) Requested() *RequestQueue {
	return p.requested
}

// Key returns the peer's identity.
func (p *Peer) Key() keys.PublicKey {
	return p.key
}

// Class returns the peer's current classification.
func (p *Peer) Class() Class {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.class
}

// SetClass updates the peer's classification, e.g. when it is promoted to
// Confidant for a round or demoted back to Neighbour.
func (p *Peer) SetClass(c Class) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.class = c
}

// Endpoint returns the address packets should be sent to: the outbound
// override if one has been set, otherwise the inbound endpoint.
func (p *Peer) Endpoint() Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.hasOut {
		return p.out
	}
	return p.in
}

// SetInboundEndpoint replaces the inbound endpoint, e.g. after a
// reconnect from a different address. The prior inbound endpoint is
// simply overwritten; the caller is responsible for retiring routing
// state keyed on the old value.
func (p *Peer) SetInboundEndpoint(e Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.in = e
}

// SetOutboundEndpoint sets an explicit outbound override, used when the
// address we must send to differs from the one the peer connected from.
func (p *Peer) SetOutboundEndpoint(e Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = e
	p.hasOut = true
}

// AdvertisedSequence returns the last Sequence this peer is known to have
// advertised.
func (p *Peer) AdvertisedSequence() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSequence
}

// SetAdvertisedSequence updates the last Sequence this peer has
// advertised, e.g. on receiving a ping or block announcement.
func (p *Peer) SetAdvertisedSequence(seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq > p.lastSequence {
		p.lastSequence = seq
	}
}

// AddStrike increments the peer's strike counter and returns the new
// total.
func (p *Peer) AddStrike() uint32 {
	return p.remote.AddStrike()
}

// Strikes returns the peer's current strike count.
func (p *Peer) Strikes() uint32 {
	return p.remote.Strikes()
}

// IsBlackListed reports whether the peer has been black-listed.
func (p *Peer) IsBlackListed() bool {
	return p.remote.IsBlackListed()
}

// SetBlackListed marks the peer as black-listed (or clears the flag on
// manual reset).
func (p *Peer) SetBlackListed(b bool) {
	p.remote.SetBlackListed(b)
}

// HasSeen reports whether hash has already been relayed to or received
// from this peer.
func (p *Peer) HasSeen(hash common.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.msgRel.Contains(hash)
}

// MarkSeen records that this peer has seen hash, suppressing future
// re-broadcasts until the entry is evicted FIFO from the bounded map.
func (p *Peer) MarkSeen(hash common.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgRel.Set(hash, msgRel{needSend: false})
}

// Attempts returns the retry count of the currently outstanding
// request/packet to this peer.
func (p *Peer) Attempts() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.attempts
}

// IncAttempts increments and returns the retry count.
func (p *Peer) IncAttempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	return p.attempts
}

// ResetAttempts clears the retry count, e.g. once a request is
// acknowledged.
func (p *Peer) ResetAttempts() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts = 0
}
