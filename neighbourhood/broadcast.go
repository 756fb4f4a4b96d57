package neighbourhood

import (
	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/peers"
	"github.com/csnode/corenode/wire"
)

// broadcastRecord tracks the delivery state of one broadcast or directed
// packet: which of its original targets have not yet acknowledged it, and
// how many times each has been retried. Mirrors the original's
// BroadPackInfo/DirectPackInfo, collapsed into one shape since both kinds
// of send share the same ack/retry/strike discipline.
type broadcastRecord struct {
	pack      *wire.Packet
	remaining map[keys.PublicKey]*peers.Peer
	attempts  map[keys.PublicKey]int
}

func newBroadcastRecord(pack *wire.Packet, targets []*peers.Peer) *broadcastRecord {
	rec := &broadcastRecord{
		pack:      pack,
		remaining: make(map[keys.PublicKey]*peers.Peer, len(targets)),
		attempts:  make(map[keys.PublicKey]int, len(targets)),
	}
	for _, p := range targets {
		rec.remaining[p.Key()] = p
	}
	return rec
}

func (r *broadcastRecord) ack(key keys.PublicKey) {
	delete(r.remaining, key)
	delete(r.attempts, key)
}

func (r *broadcastRecord) done() bool {
	return len(r.remaining) == 0
}
