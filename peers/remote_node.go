package peers

import "sync/atomic"

// cacheLinePad is sized to push the next field onto its own cache line, so
// that concurrent updates to packets/strikes/blackListed from the network
// I/O goroutines don't false-share a line with unrelated fields.
type cacheLinePad [64 - 8]byte

// RemoteNode holds the counters associated with a PublicKey identity that
// must survive across reconnects: total packets seen, accumulated strikes,
// and the black-list flag. A Peer's identity outlives any single Endpoint,
// so these counters live independently of the per-connection Peer record.
//
// Recovered from the original neighbourhood design, which keeps RemoteNode
// separate from the per-connection Connection struct for exactly this
// reason.
type RemoteNode struct {
	packets uint64
	_       cacheLinePad
	strikes uint32
	_       cacheLinePad
	blackListed uint32
	_           cacheLinePad
}

// NewRemoteNode returns a fresh, unstruck RemoteNode.
func NewRemoteNode() *RemoteNode {
	return &RemoteNode{}
}

// AddPacket increments the total packet counter.
func (r *RemoteNode) AddPacket() {
	atomic.AddUint64(&r.packets, 1)
}

// Packets returns the total packet counter.
func (r *RemoteNode) Packets() uint64 {
	return atomic.LoadUint64(&r.packets)
}

// AddStrike increments the strike counter and returns the new value.
func (r *RemoteNode) AddStrike() uint32 {
	return atomic.AddUint32(&r.strikes, 1)
}

// Strikes returns the current strike count.
func (r *RemoteNode) Strikes() uint32 {
	return atomic.LoadUint32(&r.strikes)
}

// SetBlackListed sets or clears the black-list flag.
func (r *RemoteNode) SetBlackListed(b bool) {
	var v uint32
	if b {
		v = 1
	}
	atomic.StoreUint32(&r.blackListed, v)
}

// IsBlackListed reports whether the peer has been black-listed.
func (r *RemoteNode) IsBlackListed() bool {
	return atomic.LoadUint32(&r.blackListed) != 0
}
