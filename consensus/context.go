package consensus

import (
	"bytes"
	"crypto/ecdsa"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/common"
	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/neighbourhood"
	"github.com/csnode/corenode/poolsync"
	"github.com/csnode/corenode/scheduler"
	"github.com/csnode/corenode/wire"
)

// roundVerdict classifies an incoming event's round against the
// Context's current one.
type roundVerdict int

const (
	olderRound roundVerdict = iota
	equalRound
	newerRound
)

// Context is ConsensusStateMachine: it owns the current StateKind, the
// round and its accumulators, and dispatches events to the active
// Handler, applying the deterministic transition rule after each call
// Like PoolSynchronizer, every method is meant to run on the
// scheduler's single consumer goroutine; the mutex exists only so tests
// and diagnostics may read State()/Round() from another goroutine.
type Context struct {
	log   *logrus.Entry
	nh    *neighbourhood.Neighbourhood
	chain blockchain.BlockChain
	sync  *poolsync.PoolSynchronizer
	sched *scheduler.RoundScheduler

	self keys.PublicKey
	priv *ecdsa.PrivateKey

	syncThreshold blockchain.RoundNumber

	handlers map[StateKind]Handler

	mu sync.Mutex

	state StateKind
	round blockchain.RoundNumber

	confidants []keys.PublicKey
	writer     keys.PublicKey

	vectors    map[keys.PublicKey]HashVector
	matrices   map[keys.PublicKey]HashMatrix
	sentVector bool
	sentMatrix bool

	pendingTx []blockchain.Transaction

	flushedCounter int

	spamEnabled        bool
	countTransInRound  int
	countTargetWallets int
	spamTargets        [][32]byte
}

// Option configures a Context at construction.
type Option func(*Context)

// WithSyncThreshold overrides how many rounds the local chain may lag
// before PoolSynchronizer.Sync is triggered.
func WithSyncThreshold(threshold blockchain.RoundNumber) Option {
	return func(c *Context) { c.syncThreshold = threshold }
}

// WithSpamGenerator enables the recovered transaction spam generator,
// off by default, injecting up to
// countTransInRound transactions to each of targets on every
// FlushInterval tick while the Context is in Normal state.
func WithSpamGenerator(countTransInRound int, targets [][32]byte) Option {
	return func(c *Context) {
		c.spamEnabled = true
		c.countTransInRound = countTransInRound
		c.countTargetWallets = len(targets)
		c.spamTargets = targets
	}
}

// New constructs a Context wired to chain/nh/sync/sched, starting in
// Normal state, identified by self (and signing with priv once it takes
// the Writer role).
func New(chain blockchain.BlockChain, nh *neighbourhood.Neighbourhood, sync *poolsync.PoolSynchronizer, sched *scheduler.RoundScheduler, self keys.PublicKey, priv *ecdsa.PrivateKey, log *logrus.Entry, opts ...Option) *Context {
	c := &Context{
		log:      log,
		nh:       nh,
		chain:    chain,
		sync:     sync,
		sched:    sched,
		self:     self,
		priv:     priv,
		vectors:  make(map[keys.PublicKey]HashVector),
		matrices: make(map[keys.PublicKey]HashMatrix),
	}
	c.handlers = map[StateKind]Handler{
		Normal:  &normalHandler{},
		Trusted: &trustedHandler{},
		Writer:  &writerHandler{},
		Collect: &collectHandler{},
		WriteTx: &writeTxHandler{},
		Syncing: &syncingHandler{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.handlers[Normal].OnEnter(c)
	return c
}

// State returns the current role.
func (c *Context) State() StateKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Round returns the current consensus round.
func (c *Context) Round() blockchain.RoundNumber {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round
}

func (c *Context) classifyRound(round blockchain.RoundNumber) roundVerdict {
	switch {
	case round < c.round:
		return olderRound
	case round == c.round:
		return equalRound
	default:
		return newerRound
	}
}

// adoptRound resets every per-round accumulator. Called only on receipt
// of a valid round-table for a strictly newer round.
func (c *Context) adoptRound(round blockchain.RoundNumber) {
	c.round = round
	c.vectors = make(map[keys.PublicKey]HashVector)
	c.matrices = make(map[keys.PublicKey]HashMatrix)
	c.sentVector = false
	c.sentMatrix = false
	c.pendingTx = nil
	if c.sync != nil {
		c.sync.SetCurrentRound(round)
	}
}

// HandleRoundTable processes a round-table broadcast: confidants is this
// round's trusted set and writer its designated block producer. A
// strictly newer round forces an exit/adopt/re-enter of the current
// state before its own OnRoundTable runs.
func (c *Context) HandleRoundTable(round blockchain.RoundNumber, confidants []keys.PublicKey, writer keys.PublicKey) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	verdict := c.classifyRound(round)
	if verdict == olderRound {
		return Ignore
	}

	if verdict == newerRound {
		current := c.handlers[c.state]
		current.OnExit(c)
		c.adoptRound(round)
		c.confidants = confidants
		c.writer = writer
		current.OnEnter(c)
	} else {
		c.confidants = confidants
		c.writer = writer
	}

	result := c.handlers[c.state].OnRoundTable(c, round)
	c.applyTransitionLocked(result)
	return result
}

// HandleRoundEnd notifies the current state that the round is over, then
// forces the round-scoped roles back toward Normal: Writer always closes
// out into Normal; Collect still active at round end means the writer's
// block never arrived, so it escalates to WriteTx's fallback; WriteTx
// closes into Normal once its own fallback block is out. Normal, Trusted
// and Syncing are unaffected: OnRoundEnd is the sole opportunity for a
// state that has no Result-returning path to react to a round closing.
func (c *Context) HandleRoundEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[c.state].OnRoundEnd(c)

	var next StateKind
	switch c.state {
	case Writer:
		next = Normal
	case Collect:
		next = WriteTx
	case WriteTx:
		next = Normal
	default:
		return
	}

	current := c.handlers[c.state]
	current.OnExit(c)
	c.state = next
	c.handlers[c.state].OnEnter(c)
}

// HandleBlock dispatches a received block tagged with round.
func (c *Context) HandleBlock(round blockchain.RoundNumber, block *blockchain.Pool, sender keys.PublicKey) Result {
	return c.dispatch(round, func(h Handler) Result { return h.OnBlock(c, block, sender) })
}

// HandleVector dispatches a received HashVector contribution.
func (c *Context) HandleVector(vect HashVector) Result {
	return c.dispatch(vect.Round, func(h Handler) Result { return h.OnVector(c, vect) })
}

// HandleMatrix dispatches a received HashMatrix contribution.
func (c *Context) HandleMatrix(matr HashMatrix) Result {
	return c.dispatch(matr.Round, func(h Handler) Result { return h.OnMatrix(c, matr) })
}

// HandleTransactionList dispatches a received transaction pool tagged
// with round.
func (c *Context) HandleTransactionList(round blockchain.RoundNumber, pool *TransactionList) Result {
	return c.dispatch(round, func(h Handler) Result { return h.OnTransactionList(c, pool) })
}

// dispatch applies the round-reject/buffer rule common to every non
// round-table event: strictly older rounds are ignored;
// strictly newer rounds are ignored too, since only a round-table may
// authoritatively advance the round; equal rounds are handed to the
// current state's handler.
func (c *Context) dispatch(round blockchain.RoundNumber, call func(Handler) Result) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.classifyRound(round) != equalRound {
		return Ignore
	}

	result := call(c.handlers[c.state])
	c.applyTransitionLocked(result)
	return result
}

// applyTransitionLocked consults the deterministic state x result
// transition table and, for Finish/Failure, exits the current state and
// enters the next one. Called with c.mu held.
func (c *Context) applyTransitionLocked(result Result) {
	if result != Finish && result != Failure {
		return
	}

	next := c.nextStateLocked(result)
	current := c.handlers[c.state]
	current.OnExit(c)
	c.state = next
	c.handlers[c.state].OnEnter(c)
}

// nextStateLocked implements the state x result transition table (spec
// §4.3): Trusted's Finish branches to Writer or Collect depending on
// whether this node is the round's designated writer, everything else
// funnels to Normal on Finish, and Failure always falls back to Normal.
func (c *Context) nextStateLocked(result Result) StateKind {
	if result == Failure {
		return Normal
	}
	switch c.state {
	case Normal:
		return Trusted
	case Trusted:
		if c.isWriterLocked() {
			return Writer
		}
		return Collect
	default:
		return Normal
	}
}

func (c *Context) isWriterLocked() bool {
	return c.self == c.writer
}

// VectorsComplete reports whether a HashVector has been recorded from
// every current confidant.
func (c *Context) VectorsComplete() bool {
	return len(c.vectors) >= len(c.confidants) && len(c.confidants) > 0
}

// MatricesComplete reports whether a HashMatrix has been recorded from
// every current confidant.
func (c *Context) MatricesComplete() bool {
	return len(c.matrices) >= len(c.confidants) && len(c.confidants) > 0
}

// RecordVector stores sender's contribution for the current round,
// de-duplicating by sender: a later contribution from the same sender
// overwrites the earlier one rather than accumulating.
func (c *Context) RecordVector(vect HashVector) {
	c.vectors[vect.Sender] = vect
}

// RecordMatrix stores sender's contribution for the current round.
func (c *Context) RecordMatrix(matr HashMatrix) {
	c.matrices[matr.Sender] = matr
}

// EnqueueTransactionList folds pool's transactions into the pending set
// composed into the next block.
func (c *Context) EnqueueTransactionList(pool *TransactionList) {
	c.pendingTx = append(c.pendingTx, pool.Transactions...)
}

// ComposeBlock builds the next Pool from the local chain tip and the
// transactions accumulated so far this round, signing it if a private
// key was supplied at construction.
func (c *Context) ComposeBlock() *blockchain.Pool {
	pool := &blockchain.Pool{
		Seq:          c.chain.LastSequence() + 1,
		Round:        c.round,
		Writer:       [32]byte(c.self),
		Transactions: append([]blockchain.Transaction(nil), c.pendingTx...),
	}
	if prev, ok := c.chain.GetBlock(pool.Seq - 1); ok {
		pool.PrevHash = prev.Hash()
	}
	if c.priv != nil {
		if data, err := pool.Marshal(); err == nil {
			if sig, err := keys.Sign(c.priv, data); err == nil {
				pool.Signature = [64]byte(sig)
			}
		}
	}
	return pool
}

// BroadcastBlock sends pool to every confidant via the neighbourhood.
func (c *Context) BroadcastBlock(pool *blockchain.Pool) {
	data, err := pool.Marshal()
	if err != nil {
		c.log.WithError(err).Warn("failed to marshal composed block")
		return
	}
	c.nh.SendByConfidants(wire.NewGossipPacket(wire.PoolMsg, c.self, data))
}

// BroadcastVector sends vect to every confidant and records it as sent.
func (c *Context) BroadcastVector(vect HashVector) {
	c.sentVector = true
	c.RecordVector(vect)
	data, err := vect.Marshal()
	if err != nil {
		c.log.WithError(err).Warn("failed to encode hash vector")
		return
	}
	c.nh.SendByConfidants(wire.NewGossipPacket(wire.VectorMsg, c.self, data))
}

// BroadcastMatrix sends matr to every confidant and records it as sent.
func (c *Context) BroadcastMatrix(matr HashMatrix) {
	c.sentMatrix = true
	c.RecordMatrix(matr)
	data, err := matr.Marshal()
	if err != nil {
		c.log.WithError(err).Warn("failed to encode hash matrix")
		return
	}
	c.nh.SendByConfidants(wire.NewGossipPacket(wire.MatrixMsg, c.self, data))
}

// IsConfidant reports whether self is listed among the round's
// confidants.
func (c *Context) IsConfidant() bool {
	for _, k := range c.confidants {
		if k == c.self {
			return true
		}
	}
	return false
}

// CheckSync starts pool synchronization if the node has fallen behind
// lastLocalRound by more than the configured threshold, forcibly
// switching out of whatever role is currently running into Syncing.
// Called periodically from outside the state machine (the node loop),
// since falling behind is a chain-tip condition, not an event any
// particular state handler observes.
func (c *Context) CheckSync(lastLocalRound blockchain.RoundNumber) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sync == nil || c.state == Syncing {
		return
	}
	if !c.sync.Sync(c.round, lastLocalRound, c.syncThreshold) {
		return
	}

	current := c.handlers[c.state]
	current.OnExit(c)
	c.state = Syncing
	c.handlers[Syncing].OnEnter(c)
}

// finishSyncing returns the state machine to Normal once PoolSynchronizer
// reports the chain caught up. Registered as the sync's OnFinished
// callback by syncingHandler.OnEnter.
func (c *Context) finishSyncing() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Syncing {
		return
	}
	c.handlers[Syncing].OnExit(c)
	c.state = Normal
	c.handlers[Normal].OnEnter(c)
}

// selfVectorHash derives a deterministic placeholder hash for this
// node's vector contribution from the pending transaction set: the core
// treats vector contents as opaque, so any stable hash of local state
// satisfies the contract.
func (c *Context) selfVectorHash() common.Hash {
	var buf []byte
	for _, tx := range c.pendingTx {
		buf = append(buf, tx...)
	}
	return common.HashBytes(buf)
}

// computeMatrixHash folds every accumulated vector's hash, in a
// sender-sorted deterministic order, into this node's matrix
// contribution.
func (c *Context) computeMatrixHash() common.Hash {
	senders := make([]keys.PublicKey, 0, len(c.vectors))
	for k := range c.vectors {
		senders = append(senders, k)
	}
	sort.Slice(senders, func(i, j int) bool {
		return bytes.Compare(senders[i][:], senders[j][:]) < 0
	})
	var buf []byte
	for _, k := range senders {
		v := c.vectors[k]
		buf = append(buf, v.Hash[:]...)
	}
	return common.HashBytes(buf)
}

// flushTransactions broadcasts the pending transaction pool to the
// current neighbourhood and clears it, incrementing flushedCounter
// whether or not there was anything to send.
func (c *Context) flushTransactions() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.flushedCounter++
	if len(c.pendingTx) == 0 {
		return
	}

	packet := &TransactionList{
		Sender:       [32]byte(c.self),
		Transactions: append([]blockchain.Transaction(nil), c.pendingTx...),
	}
	c.pendingTx = nil

	data, err := packet.Marshal()
	if err != nil {
		c.log.WithError(err).Warn("failed to encode transaction list")
		return
	}
	c.nh.SendByNeighbours(wire.NewGossipPacket(wire.TransactionListMsg, c.self, data))
}

// generateSpam injects up to countTransInRound synthetic transactions
// addressed to each configured target wallet into the pending pool; the
// next flush picks them up and gossips them like any other transaction.
func (c *Context) generateSpam() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, target := range c.spamTargets {
		for i := 0; i < c.countTransInRound; i++ {
			tx := make(blockchain.Transaction, 0, 64)
			tx = append(tx, c.self[:]...)
			tx = append(tx, target[:]...)
			c.pendingTx = append(c.pendingTx, tx)
		}
	}
}
