package poolsync

import (
	"testing"

	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/common"
	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/net"
	"github.com/csnode/corenode/neighbourhood"
	"github.com/csnode/corenode/peers"
	"github.com/csnode/corenode/scheduler"
	"github.com/csnode/corenode/storage"
)

func testKey(b byte) keys.PublicKey {
	var k keys.PublicKey
	k[0] = b
	return k
}

func newTestRig(t *testing.T) (*PoolSynchronizer, *storage.InMemChain, *neighbourhood.Neighbourhood) {
	t.Helper()
	chain := storage.NewInMemChain()
	transport := net.NewInmemTransport(peers.Endpoint{IP: "127.0.0.1", Port: 9000}, testKey(0xFF))
	logger := common.NewTestLogger(t)
	nh := neighbourhood.NewNeighbourhood(transport, chain.LastSequence, logger.WithField("prefix", "neighbourhood"))
	sched := scheduler.NewRoundScheduler(logger.WithField("prefix", "scheduler"))
	go sched.Run()
	t.Cleanup(sched.Shutdown)

	s := New(chain, nh, sched, logger.WithField("prefix", "poolsync"))
	return s, chain, nh
}

func registerNeighbour(t *testing.T, nh *neighbourhood.Neighbourhood, key keys.PublicKey, advertised blockchain.Sequence) *peers.Peer {
	t.Helper()
	p, err := nh.Register(key, peers.Endpoint{IP: "10.0.0.1", Port: int(key[0])}, peers.Neighbour)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	p.SetAdvertisedSequence(advertised)
	nh.ChooseNeighbours()
	return p
}

func deliver(t *testing.T, s *PoolSynchronizer, chain *storage.InMemChain, from, to blockchain.Sequence) {
	t.Helper()
	var pools []*blockchain.Pool
	for seq := from; seq <= to; seq++ {
		pools = append(pools, &blockchain.Pool{Seq: seq})
	}
	s.OnBlockReply(pools, 1)
}

// Fresh sync from one peer.
func TestFreshSyncFromOnePeer(t *testing.T) {
	s, chain, nh := newTestRig(t)
	registerNeighbour(t, nh, testKey(1), 20)

	started := s.Sync(20, 0, 0)
	if !started {
		t.Fatalf("expected sync to start")
	}
	if got := s.Pending(); got != BlocksToSync {
		t.Fatalf("expected %d outstanding sequences, got %d", BlocksToSync, got)
	}

	var finished bool
	s.OnFinished(func() { finished = true })

	deliver(t, s, chain, 1, 16)
	if s.Pending() != 4 {
		t.Fatalf("expected window refilled to 4 remaining (17-20), got %d", s.Pending())
	}
	if finished {
		t.Fatalf("did not expect completion before reaching target tip")
	}

	deliver(t, s, chain, 17, 20)
	if !finished {
		t.Fatalf("expected synchro_finished to fire")
	}
	if chain.LastSequence() != 20 {
		t.Fatalf("expected last_stored == 20, got %d", chain.LastSequence())
	}
	if s.Started() {
		t.Fatalf("expected synchronizer to be stopped after finishing")
	}
}

// Timeout reassignment. Two equally-advertised peers
// split the window; neither replies before WarnsBeforeRefill rounds pass,
// so every outstanding sequence is reassigned. Delivering against the new
// assignment must still drive the sync to completion.
func TestTimeoutReassignment(t *testing.T) {
	s, chain, nh := newTestRig(t)
	a := registerNeighbour(t, nh, testKey(1), 10)
	b := registerNeighbour(t, nh, testKey(2), 10)

	s.Sync(1, 0, 0)

	total := a.Requested().Len() + b.Requested().Len()
	if total != 10 {
		t.Fatalf("expected 10 sequences partitioned across both peers, got %d", total)
	}
	if a.Requested().Len() == 0 || b.Requested().Len() == 0 {
		t.Fatalf("expected the window split across both peers, got a=%d b=%d", a.Requested().Len(), b.Requested().Len())
	}

	s.SetCurrentRound(1 + blockchain.RoundNumber(WarnsBeforeRefill) + 1)
	s.CheckTimeouts()

	if got := s.Pending(); got != 10 {
		t.Fatalf("expected reassignment to preserve all 10 outstanding sequences, got %d", got)
	}
	if a.Requested().Len()+b.Requested().Len() != 10 {
		t.Fatalf("expected the reassigned sequences to still be fully owned across the two peers")
	}

	var finished bool
	s.OnFinished(func() { finished = true })
	deliver(t, s, chain, 1, 5)
	deliver(t, s, chain, 6, 10)

	if !finished {
		t.Fatalf("expected completion once every reassigned sequence is delivered")
	}
	if chain.LastSequence() != 10 {
		t.Fatalf("expected last_stored == 10, got %d", chain.LastSequence())
	}
}

func TestSyncLastPoolRequestsExactlyOneSequence(t *testing.T) {
	s, chain, nh := newTestRig(t)
	registerNeighbour(t, nh, testKey(1), 5)

	s.SyncLastPool(1)
	if s.Pending() != 1 {
		t.Fatalf("expected exactly one outstanding sequence, got %d", s.Pending())
	}

	deliver(t, s, chain, 1, 1)
	if chain.LastSequence() != 1 {
		t.Fatalf("expected last_stored == 1, got %d", chain.LastSequence())
	}
}

func TestProgressReportedOncePerWholePercent(t *testing.T) {
	s, chain, nh := newTestRig(t)
	registerNeighbour(t, nh, testKey(1), 100)

	var percents []int
	s.OnProgress(func(p int) { percents = append(percents, p) })

	s.Sync(100, 0, 0)
	deliver(t, s, chain, 1, BlocksToSync)

	if len(percents) == 0 {
		t.Fatalf("expected at least one progress callback")
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] <= percents[i-1] {
			t.Fatalf("expected strictly increasing percents, got %v", percents)
		}
	}
}

func TestDuplicateReplyIsIdempotent(t *testing.T) {
	s, chain, nh := newTestRig(t)
	registerNeighbour(t, nh, testKey(1), 5)

	s.Sync(5, 0, 0)
	deliver(t, s, chain, 1, 5)

	before := chain.LastSequence()
	// A reply for a sequence no longer in `requested` (already applied)
	// must be silently ignored rather than erroring or double-applying.
	deliver(t, s, chain, 1, 5)
	if chain.LastSequence() != before {
		t.Fatalf("expected duplicate replies to be idempotent, last_stored changed from %d to %d", before, chain.LastSequence())
	}
}
