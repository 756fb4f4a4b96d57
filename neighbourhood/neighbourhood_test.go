package neighbourhood

import (
	"testing"

	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/common"
	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/net"
	"github.com/csnode/corenode/peers"
	"github.com/csnode/corenode/wire"
)

func testKey(b byte) keys.PublicKey {
	var k keys.PublicKey
	k[0] = b
	return k
}

func newTestNeighbourhood(t *testing.T, seq blockchain.Sequence) (*Neighbourhood, *net.InmemTransport) {
	t.Helper()
	local := peers.Endpoint{IP: "127.0.0.1", Port: 9000}
	transport := net.NewInmemTransport(local, testKey(0xFF))
	logger := common.NewTestLogger(t).WithField("prefix", "neighbourhood")
	n := NewNeighbourhood(transport, func() blockchain.Sequence { return seq }, logger)
	return n, transport
}

func TestRegisterInsertsNewPeer(t *testing.T) {
	n, _ := newTestNeighbourhood(t, 0)

	p, err := n.Register(testKey(1), peers.Endpoint{IP: "10.0.0.1", Port: 1}, peers.Neighbour)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if p.Key() != testKey(1) {
		t.Fatalf("unexpected peer key")
	}

	again, err := n.Register(testKey(1), peers.Endpoint{IP: "10.0.0.2", Port: 2}, peers.Neighbour)
	if err != nil {
		t.Fatalf("Register (update): %v", err)
	}
	if again != p {
		t.Fatalf("expected the same Peer record to be returned and updated in place")
	}
	if again.Endpoint().IP != "10.0.0.2" {
		t.Fatalf("expected endpoint to be updated, got %+v", again.Endpoint())
	}
}

func TestChooseNeighboursPrefersPeersAheadOfLocalSequence(t *testing.T) {
	n, _ := newTestNeighbourhood(t, 10)

	behind, _ := n.Register(testKey(1), peers.Endpoint{IP: "10.0.0.1", Port: 1}, peers.Neighbour)
	behind.SetAdvertisedSequence(1)

	ahead, _ := n.Register(testKey(2), peers.Endpoint{IP: "10.0.0.2", Port: 2}, peers.Neighbour)
	ahead.SetAdvertisedSequence(20)

	n.ChooseNeighbours()

	if n.Size() != 2 {
		t.Fatalf("expected both candidates selected, got %d", n.Size())
	}

	var sawAhead, sawBehind bool
	n.ForEachNeighbour(func(p *peers.Peer) {
		switch p.Key() {
		case testKey(2):
			sawAhead = true
		case testKey(1):
			sawBehind = true
		}
	})
	if !sawAhead || !sawBehind {
		t.Fatalf("expected both peers present in the chosen set")
	}
	if got := n.Snapshot(); got[0].Key() != testKey(2) {
		t.Fatalf("expected the peer ahead of the local sequence to be ordered first")
	}
}

func TestGetRandomSyncNeighbourOnlyReturnsPeersAhead(t *testing.T) {
	n, _ := newTestNeighbourhood(t, 10)

	behind, _ := n.Register(testKey(1), peers.Endpoint{IP: "10.0.0.1", Port: 1}, peers.Neighbour)
	behind.SetAdvertisedSequence(5)
	ahead, _ := n.Register(testKey(2), peers.Endpoint{IP: "10.0.0.2", Port: 2}, peers.Neighbour)
	ahead.SetAdvertisedSequence(50)

	n.ChooseNeighbours()

	got, ok := n.GetRandomSyncNeighbour()
	if !ok {
		t.Fatalf("expected a qualifying sync neighbour")
	}
	if got.Key() != testKey(2) {
		t.Fatalf("expected the peer ahead of local sequence, got %v", got.Key())
	}
}

func TestGetRandomSyncNeighbourNoneQualify(t *testing.T) {
	n, _ := newTestNeighbourhood(t, 100)

	behind, _ := n.Register(testKey(1), peers.Endpoint{IP: "10.0.0.1", Port: 1}, peers.Neighbour)
	behind.SetAdvertisedSequence(5)
	n.ChooseNeighbours()

	if _, ok := n.GetRandomSyncNeighbour(); ok {
		t.Fatalf("expected no qualifying sync neighbour")
	}
}

func TestSendByNeighboursDeliversToConnectedPeersAndDedups(t *testing.T) {
	n, transport := newTestNeighbourhood(t, 0)

	remoteEndpoint := peers.Endpoint{IP: "10.0.0.1", Port: 1}
	remote := net.NewInmemTransport(remoteEndpoint, testKey(1))
	transport.Connect(remote)

	var received int
	remote.OnPacket(func(bytes []byte, from peers.Endpoint) { received++ })

	p, err := n.Register(testKey(1), remoteEndpoint, peers.Neighbour)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	n.nMu.Lock()
	n.neighbours = []*peers.Peer{p}
	n.nMu.Unlock()

	pack := wire.NewPacket([]byte("hello"))
	n.SendByNeighbours(pack)
	if received != 1 {
		t.Fatalf("expected 1 delivery, got %d", received)
	}

	n.SendByNeighbours(pack)
	if received != 1 {
		t.Fatalf("expected no re-delivery of an already-seen packet, got %d total", received)
	}
}

func TestNeighbourHasPacketClearsPendingAck(t *testing.T) {
	n, transport := newTestNeighbourhood(t, 0)

	remoteEndpoint := peers.Endpoint{IP: "10.0.0.1", Port: 1}
	remote := net.NewInmemTransport(remoteEndpoint, testKey(1))
	transport.Connect(remote)
	// Drop delivery so the packet stays pending.
	remote.OnPacket(func(bytes []byte, from peers.Endpoint) {})
	transport.Disconnect(remote)

	p, _ := n.Register(testKey(1), remoteEndpoint, peers.Neighbour)
	n.nMu.Lock()
	n.neighbours = []*peers.Peer{p}
	n.nMu.Unlock()

	pack := wire.NewPacket([]byte("payload"))
	hash := pack.Hash()

	n.pendingMu.Lock()
	n.pending[hash] = newBroadcastRecord(pack, []*peers.Peer{p})
	n.pendingMu.Unlock()

	n.NeighbourHasPacket(p, hash, false)

	n.pendingMu.Lock()
	_, stillPending := n.pending[hash]
	n.pendingMu.Unlock()
	if stillPending {
		t.Fatalf("expected the record to be cleared once the peer acknowledged it")
	}
	if !p.HasSeen(hash) {
		t.Fatalf("expected the peer to be marked as having seen the hash")
	}
}

func TestStrikeBlackListsAfterThreshold(t *testing.T) {
	n, _ := newTestNeighbourhood(t, 0)

	p, _ := n.Register(testKey(1), peers.Endpoint{IP: "10.0.0.1", Port: 1}, peers.Neighbour)
	n.nMu.Lock()
	n.neighbours = []*peers.Peer{p}
	n.nMu.Unlock()

	for i := 0; i < StrikesUntilBlackList-1; i++ {
		n.Strike(p)
	}
	if p.IsBlackListed() {
		t.Fatalf("should not be black-listed before reaching the threshold")
	}
	if n.Size() != 1 {
		t.Fatalf("should still be an active neighbour before the threshold")
	}

	n.Strike(p)
	if !p.IsBlackListed() {
		t.Fatalf("expected the peer to be black-listed at the threshold")
	}
	if n.Size() != 0 {
		t.Fatalf("expected the black-listed peer to be dropped from the neighbour set")
	}
}

func TestRegisterFailsAtCapacityForUnknownPeer(t *testing.T) {
	n, _ := newTestNeighbourhood(t, 0)

	n.cMu.Lock()
	for i := 0; i < MaxConnections; i++ {
		var k keys.PublicKey
		k[0] = byte(i)
		k[1] = byte(i >> 8)
		n.connections[k] = peers.NewPeer(k, peers.Endpoint{}, peers.Neighbour, MaxMessagesToKeep)
	}
	n.cMu.Unlock()
	n.nMu.Lock()
	for i := 0; i < MaxNeighbours; i++ {
		n.neighbours = append(n.neighbours, peers.NewPeer(testKey(byte(i)), peers.Endpoint{}, peers.Neighbour, MaxMessagesToKeep))
	}
	n.nMu.Unlock()

	var newKey keys.PublicKey
	newKey[2] = 1
	if _, err := n.Register(newKey, peers.Endpoint{IP: "10.0.0.9", Port: 9}, peers.Neighbour); err != ErrCapacity {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
}

func TestHandlePeerDisconnectedRemovesFromActiveSets(t *testing.T) {
	n, _ := newTestNeighbourhood(t, 0)

	p, _ := n.Register(testKey(1), peers.Endpoint{IP: "10.0.0.1", Port: 1}, peers.Neighbour)
	n.nMu.Lock()
	n.neighbours = []*peers.Peer{p}
	n.nMu.Unlock()

	n.HandlePeerDisconnected(testKey(1))
	if n.Size() != 0 {
		t.Fatalf("expected the peer to be removed from the active neighbour set")
	}
}
