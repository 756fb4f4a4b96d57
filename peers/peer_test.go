package peers

import (
	"testing"

	"github.com/csnode/corenode/common"
	"github.com/csnode/corenode/crypto/keys"
)

func testKey(b byte) keys.PublicKey {
	var k keys.PublicKey
	k[0] = b
	return k
}

func TestPeerEndpointFallback(t *testing.T) {
	p := NewPeer(testKey(1), Endpoint{IP: "10.0.0.1", Port: 1337}, Neighbour, 8)

	if p.Endpoint() != (Endpoint{IP: "10.0.0.1", Port: 1337}) {
		t.Fatalf("expected inbound endpoint by default")
	}

	p.SetOutboundEndpoint(Endpoint{IP: "1.2.3.4", Port: 9000})
	if p.Endpoint() != (Endpoint{IP: "1.2.3.4", Port: 9000}) {
		t.Fatalf("expected outbound endpoint to override inbound")
	}
}

func TestPeerAdvertisedSequenceMonotone(t *testing.T) {
	p := NewPeer(testKey(2), Endpoint{}, Neighbour, 8)

	p.SetAdvertisedSequence(10)
	p.SetAdvertisedSequence(5)
	if p.AdvertisedSequence() != 10 {
		t.Fatalf("advertised sequence should never move backwards, got %d", p.AdvertisedSequence())
	}
	p.SetAdvertisedSequence(20)
	if p.AdvertisedSequence() != 20 {
		t.Fatalf("expected advertised sequence 20, got %d", p.AdvertisedSequence())
	}
}

func TestPeerStrikesAndBlackList(t *testing.T) {
	p := NewPeer(testKey(3), Endpoint{}, Neighbour, 8)

	if p.IsBlackListed() {
		t.Fatalf("fresh peer should not be black-listed")
	}
	for i := 0; i < 5; i++ {
		p.AddStrike()
	}
	if p.Strikes() != 5 {
		t.Fatalf("expected 5 strikes, got %d", p.Strikes())
	}

	p.SetBlackListed(true)
	if !p.IsBlackListed() {
		t.Fatalf("expected peer to be black-listed")
	}
}

func TestPeerMsgRelDedupFIFOEviction(t *testing.T) {
	p := NewPeer(testKey(4), Endpoint{}, Neighbour, 2)

	h1 := common.HashBytes([]byte("one"))
	h2 := common.HashBytes([]byte("two"))
	h3 := common.HashBytes([]byte("three"))

	p.MarkSeen(h1)
	p.MarkSeen(h2)

	if !p.HasSeen(h1) || !p.HasSeen(h2) {
		t.Fatalf("expected both hashes to be tracked")
	}

	// Capacity is 2: adding a third hash evicts h1 FIFO.
	p.MarkSeen(h3)

	if p.HasSeen(h1) {
		t.Fatalf("expected h1 to have been evicted")
	}
	if !p.HasSeen(h2) || !p.HasSeen(h3) {
		t.Fatalf("expected h2 and h3 to still be tracked")
	}
}

func TestPeerAttempts(t *testing.T) {
	p := NewPeer(testKey(5), Endpoint{}, Neighbour, 8)

	if p.Attempts() != 0 {
		t.Fatalf("fresh peer should have zero attempts")
	}
	p.IncAttempts()
	p.IncAttempts()
	if p.Attempts() != 2 {
		t.Fatalf("expected 2 attempts, got %d", p.Attempts())
	}
	p.ResetAttempts()
	if p.Attempts() != 0 {
		t.Fatalf("expected attempts reset to zero")
	}
}
