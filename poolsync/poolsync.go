// Package poolsync implements PoolSynchronizer: it detects
// when the local chain has fallen behind, splits the missing sequence
// range across the current neighbourhood, issues block requests, tracks
// per-sequence timeouts, and reconciles replies back into BlockChain.
package poolsync

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/neighbourhood"
	"github.com/csnode/corenode/peers"
	"github.com/csnode/corenode/scheduler"
	"github.com/csnode/corenode/wire"
)

// PoolsRequest is the signal PoolSynchronizer emits for the transport
// layer (via Neighbourhood.SendTo) to serialize: a block request aimed at
// one neighbour for a contiguous batch of sequences.
type PoolsRequest struct {
	Target    keys.PublicKey
	Sequences []blockchain.Sequence
	PacketID  uint64
}

// retryTag is the scheduler tag under which the timeout/retry tick runs.
const retryTag scheduler.Tag = 1

// PoolSynchronizer drives §4.2's window/partition/timeout/reply-handling
// state. Every exported method except the constructor is intended to run
// on the scheduler's single consumer goroutine, matching §5's "core
// handler zone"; the zero-value mutex below exists only so tests may
// safely read progress counters from a second goroutine.
type PoolSynchronizer struct {
	log *logrus.Entry

	chain blockchain.BlockChain
	nh    *neighbourhood.Neighbourhood
	sched *scheduler.RoundScheduler

	blocksToSync      int
	warnsBeforeRefill int
	maxSyncAttempts   int
	timerInterval     time.Duration

	onFinished func()
	onProgress func(percent int)
	onRequest  func(PoolsRequest)

	mu sync.Mutex

	started   bool
	requested map[blockchain.Sequence]blockchain.RoundNumber
	owner     map[blockchain.Sequence]keys.PublicKey
	failures  map[blockchain.Sequence]int

	currentRound blockchain.RoundNumber
	startSeq     blockchain.Sequence
	targetTip    blockchain.Sequence
	lastPercent  int

	packetID uint64
}

// Option configures a PoolSynchronizer at construction.
type Option func(*PoolSynchronizer)

// WithWindow overrides the default window/retry constants, e.g. for tests
// that want a tighter window than BlocksToSync.
func WithWindow(blocksToSync, warnsBeforeRefill, maxSyncAttempts int) Option {
	return func(s *PoolSynchronizer) {
		s.blocksToSync = blocksToSync
		s.warnsBeforeRefill = warnsBeforeRefill
		s.maxSyncAttempts = maxSyncAttempts
	}
}

// WithTimerInterval overrides the periodic timeout-check tick.
func WithTimerInterval(d time.Duration) Option {
	return func(s *PoolSynchronizer) { s.timerInterval = d }
}

// OnFinished registers the callback invoked once synchro_finished fires:
// every requested sequence is stored and the chain has reached the
// target tip observed when Sync started.
func (s *PoolSynchronizer) OnFinished(cb func()) { s.onFinished = cb }

// OnProgress registers the callback invoked once per whole-integer
// increase in percent progress toward the target tip.
func (s *PoolSynchronizer) OnProgress(cb func(percent int)) { s.onProgress = cb }

// OnRequest registers the callback invoked with each PoolsRequest signal
// as it is emitted, primarily for tests that want to observe partitioning
// without a live transport.
func (s *PoolSynchronizer) OnRequest(cb func(PoolsRequest)) { s.onRequest = cb }

// New constructs a PoolSynchronizer wired to chain, the Neighbourhood it
// requests through, and the scheduler its retry timer runs on.
func New(chain blockchain.BlockChain, nh *neighbourhood.Neighbourhood, sched *scheduler.RoundScheduler, log *logrus.Entry, opts ...Option) *PoolSynchronizer {
	s := &PoolSynchronizer{
		log:               log,
		chain:             chain,
		nh:                nh,
		sched:             sched,
		blocksToSync:      BlocksToSync,
		warnsBeforeRefill: WarnsBeforeRefill,
		maxSyncAttempts:   MaxSyncAttempts,
		timerInterval:     DefaultTimerInterval,
		requested:         make(map[blockchain.Sequence]blockchain.RoundNumber),
		owner:             make(map[blockchain.Sequence]keys.PublicKey),
		failures:          make(map[blockchain.Sequence]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Started reports whether a synchronization run is currently in progress.
func (s *PoolSynchronizer) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Pending returns the number of sequences currently outstanding.
func (s *PoolSynchronizer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requested)
}

// SetCurrentRound records the consensus round now in progress, consulted
// by the retry timer to age outstanding requests. The ConsensusStateMachine
// calls this on every round boundary, since a round change implicitly
// cancels stale per-round tasks.
func (s *PoolSynchronizer) SetCurrentRound(round blockchain.RoundNumber) {
	s.mu.Lock()
	s.currentRound = round
	s.mu.Unlock()
}

// Sync starts synchronization if the gap between currentRound and
// lastLocalRound (the round the local chain last advanced at) exceeds
// threshold. It is a no-op, returning false, if a sync is already running
// or the node is not behind.
func (s *PoolSynchronizer) Sync(currentRound, lastLocalRound, threshold blockchain.RoundNumber) bool {
	if currentRound <= lastLocalRound || currentRound-lastLocalRound <= threshold {
		return false
	}
	s.start(currentRound)
	return true
}

// SyncLastPool requests exactly the single trailing sequence
// (LastSequence()+1), used to chase a block that was just announced
// rather than to catch up a whole range.
func (s *PoolSynchronizer) SyncLastPool(currentRound blockchain.RoundNumber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentRound = currentRound
	if !s.started {
		s.started = true
		s.startSeq = s.chain.LastSequence()
		s.armTimer()
	}

	last := s.chain.LastSequence()
	seq := last + 1
	if seq > s.targetTip {
		s.targetTip = seq
	}
	if _, requested := s.requested[seq]; !requested {
		s.requested[seq] = currentRound
	}
	s.partitionAndRequestLocked()
}

func (s *PoolSynchronizer) start(currentRound blockchain.RoundNumber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentRound = currentRound
	if s.started {
		s.fillWindowLocked()
		s.partitionAndRequestLocked()
		return
	}

	s.started = true
	s.startSeq = s.chain.LastSequence()
	s.lastPercent = 0
	s.targetTip = s.neighbourhoodTipLocked()
	s.armTimer()

	s.fillWindowLocked()
	s.partitionAndRequestLocked()
}

// neighbourhoodTipLocked returns the highest sequence any current
// neighbour has advertised; called with s.mu held.
func (s *PoolSynchronizer) neighbourhoodTipLocked() blockchain.Sequence {
	var tip blockchain.Sequence
	s.nh.ForEachNeighbour(func(p *peers.Peer) {
		if adv := p.AdvertisedSequence(); adv > tip {
			tip = adv
		}
	})
	return tip
}

// fillWindowLocked tops the requested set up to blocksToSync entries,
// skipping any sequence already stored, stopping at the target tip.
func (s *PoolSynchronizer) fillWindowLocked() {
	last := s.chain.LastSequence()
	candidate := last + 1
	for len(s.requested) < s.blocksToSync && candidate <= s.targetTip {
		if _, already := s.requested[candidate]; !already {
			s.requested[candidate] = s.currentRound
		}
		candidate++
	}
}

// partitionAndRequestLocked assigns every requested sequence without a
// live owner to a neighbour, preferring neighbours with the highest
// advertised sequence first, and emits one PoolsRequest per neighbour
// through Neighbourhood.SendTo.
func (s *PoolSynchronizer) partitionAndRequestLocked() {
	var unassigned []blockchain.Sequence
	for seq := range s.requested {
		if _, owned := s.owner[seq]; !owned {
			unassigned = append(unassigned, seq)
		}
	}
	if len(unassigned) == 0 {
		return
	}
	sort.Slice(unassigned, func(i, j int) bool { return unassigned[i] < unassigned[j] })

	candidates := s.nh.Snapshot()
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].AdvertisedSequence() > candidates[j].AdvertisedSequence()
	})

	i := 0
	for ci, peer := range candidates {
		if i >= len(unassigned) {
			break
		}
		adv := peer.AdvertisedSequence()

		// Spread what's left evenly over the neighbours that remain,
		// so one far-ahead neighbour doesn't starve the rest of the
		// batch; each chunk still respects the advertised ceiling.
		remainingPeers := len(candidates) - ci
		remainingItems := len(unassigned) - i
		chunk := (remainingItems + remainingPeers - 1) / remainingPeers

		var batch []blockchain.Sequence
		for len(batch) < chunk && i < len(unassigned) && unassigned[i] <= adv {
			batch = append(batch, unassigned[i])
			i++
		}
		if len(batch) == 0 {
			continue
		}
		s.assignLocked(peer, batch)
	}
}

func (s *PoolSynchronizer) assignLocked(peer *peers.Peer, seqs []blockchain.Sequence) {
	for _, seq := range seqs {
		s.owner[seq] = peer.Key()
		peer.Requested().Push(seq)
	}

	s.packetID++
	req := &wire.BlockRequest{TargetKey: peer.Key(), PacketID: s.packetID, Sequences: seqs}
	if err := s.nh.SendTo(peer, req.Encode(), uint16(s.packetID)); err != nil {
		s.log.WithError(err).WithField("peer", peer.Key()).Warn("block request send failed")
	}
	if s.onRequest != nil {
		s.onRequest(PoolsRequest{Target: peer.Key(), Sequences: seqs, PacketID: s.packetID})
	}
}

// armTimer (re)starts the periodic timeout/retry tick on the scheduler.
func (s *PoolSynchronizer) armTimer() {
	s.sched.Schedule(s.timerInterval, scheduler.Periodic, retryTag, s.onTimer)
}

// CheckTimeouts runs one timeout-and-retry pass immediately, the same
// logic the periodic scheduler tick invokes. Exposed for tests and for
// callers that want to force a pass outside the regular tick.
func (s *PoolSynchronizer) CheckTimeouts() {
	s.onTimer()
}

// onTimer reassigns sequences that have aged past warnsBeforeRefill
// rounds without a reply, and drops sequences that have exhausted
// maxSyncAttempts, leaving them to be re-picked up on the next
// fillWindow. It runs on the scheduler consumer goroutine.
func (s *PoolSynchronizer) onTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	var toReassign []blockchain.Sequence
	for seq, issuedRound := range s.requested {
		if s.currentRound < issuedRound {
			continue
		}
		if s.currentRound-issuedRound > blockchain.RoundNumber(s.warnsBeforeRefill) {
			toReassign = append(toReassign, seq)
		}
	}

	for _, seq := range toReassign {
		s.failures[seq]++
		if prevOwner, ok := s.owner[seq]; ok {
			if peer, ok := s.nh.Lookup(prevOwner); ok {
				peer.Requested().Remove(seq, peers.Exact)
			}
			delete(s.owner, seq)
		}

		if s.failures[seq] > s.maxSyncAttempts {
			delete(s.requested, seq)
			delete(s.failures, seq)
			continue
		}
		s.requested[seq] = s.currentRound
	}

	s.fillWindowLocked()
	s.partitionAndRequestLocked()
}

// OnBlockReply reconciles a batch of received pools against the
// outstanding requested set: matching
// sequences are stored and cleared from their owning neighbour's request
// queue (EXACT accuracy); once the chain tip advances, every neighbour's
// queue entries at or below the new tip are cleared in one LOWER_BOUND
// pass, since they are now implied stored.
func (s *PoolSynchronizer) OnBlockReply(pools []*blockchain.Pool, packetID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := append([]*blockchain.Pool(nil), pools...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Sequence() < ordered[j].Sequence() })

	for _, pool := range ordered {
		seq := pool.Sequence()
		if _, requested := s.requested[seq]; !requested {
			continue
		}

		result, err := s.chain.StoreBlock(pool)
		if err != nil || result == blockchain.Invalid {
			s.log.WithError(err).WithField("sequence", seq).Warn("rejected block reply")
			continue
		}

		delete(s.requested, seq)
		delete(s.failures, seq)
		if owner, ok := s.owner[seq]; ok {
			if peer, ok := s.nh.Lookup(owner); ok {
				peer.Requested().Remove(seq, peers.Exact)
			}
			delete(s.owner, seq)
		}
	}

	lastStored := s.chain.LastSequence()
	s.nh.ForEachNeighbour(func(p *peers.Peer) {
		if front, ok := p.Requested().Front(); ok && front <= lastStored {
			p.Requested().Remove(lastStored, peers.LowerBound)
		}
	})

	s.reportProgressLocked(lastStored)

	if len(s.requested) == 0 && lastStored >= s.targetTip {
		s.finishLocked()
		return
	}

	s.fillWindowLocked()
	s.partitionAndRequestLocked()
}

func (s *PoolSynchronizer) reportProgressLocked(lastStored blockchain.Sequence) {
	if s.onProgress == nil || s.targetTip <= s.startSeq {
		return
	}
	percent := int((lastStored - s.startSeq) * 100 / (s.targetTip - s.startSeq))
	if percent > s.lastPercent {
		s.lastPercent = percent
		s.onProgress(percent)
	}
}

// finishLocked tears down the running synchronization and fires
// onFinished. Called with s.mu held.
func (s *PoolSynchronizer) finishLocked() {
	s.started = false
	s.sched.Cancel(retryTag)
	if s.onFinished != nil {
		cb := s.onFinished
		s.mu.Unlock()
		cb()
		s.mu.Lock()
	}
}
