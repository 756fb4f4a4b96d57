package node

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/config"
	"github.com/csnode/corenode/consensus"
	"github.com/csnode/corenode/crypto/keys"
	commonnet "github.com/csnode/corenode/net"
	"github.com/csnode/corenode/net/signal/wamp"
	"github.com/csnode/corenode/neighbourhood"
	"github.com/csnode/corenode/peers"
	"github.com/csnode/corenode/poolsync"
	"github.com/csnode/corenode/scheduler"
	"github.com/csnode/corenode/storage"
	"github.com/csnode/corenode/storage/badgerstore"
	"github.com/csnode/corenode/wire"
)

// roundTick is how often the round driver rotates the confidant set and
// writer, in the absence of any external round-table origin: leader
// election proper is treated as an external collaborator, but a node
// running standalone must still make progress, so it elects its own
// rounds from its currently connected neighbours.
const roundTick = 2 * time.Second

// syncCheckTag is CheckSync's periodic tick. The round driver itself runs
// off ControlTimer rather than the scheduler, so it needs no tag; this one
// is distinct from consensus's flushTag/spamTag and poolsync's retryTag
// since all three packages share one RoundScheduler.
const syncCheckTag scheduler.Tag = 201

// Node wires every core component (per SPEC_FULL.md §4.11) into a running
// process: config, logging, storage, transport, neighbourhood, scheduler,
// pool synchronization and the consensus state machine.
type Node struct {
	state

	cfg    *config.Config
	logger *logrus.Entry

	self keys.PublicKey

	chain     blockchain.BlockChain
	transport commonnet.Transport
	nh        *neighbourhood.Neighbourhood
	sched     *scheduler.RoundScheduler
	sync      *poolsync.PoolSynchronizer
	consensus *consensus.Context

	timer *ControlTimer

	round blockchain.RoundNumber
}

// New builds a Node from cfg, choosing an in-memory or Badger-backed chain
// and a TCP or WebRTC transport according to cfg.Store/cfg.WebRTC.
func New(cfg *config.Config) (*Node, error) {
	logger := cfg.Logger()

	if cfg.Key == nil {
		return nil, fmt.Errorf("node: config has no private key")
	}
	self := keys.Identity(&cfg.Key.PublicKey)

	chain, err := newChain(cfg)
	if err != nil {
		return nil, fmt.Errorf("node: open storage: %w", err)
	}

	transport, err := newTransport(cfg, self, logger)
	if err != nil {
		return nil, fmt.Errorf("node: create transport: %w", err)
	}

	nh := neighbourhood.NewNeighbourhood(transport, chain.LastSequence, logger.WithField("component", "neighbourhood"))
	sched := scheduler.NewRoundScheduler(logger.WithField("component", "scheduler"))
	sync := poolsync.New(chain, nh, sched, logger.WithField("component", "poolsync"),
		poolsync.WithWindow(cfg.BlocksToSync, cfg.WarnsBeforeRefill, cfg.MaxSyncAttempts),
	)
	ctx := consensus.New(chain, nh, sync, sched, self, cfg.Key, logger.WithField("component", "consensus"),
		consensus.WithSyncThreshold(1),
	)

	n := &Node{
		cfg:       cfg,
		logger:    logger,
		self:      self,
		chain:     chain,
		transport: transport,
		nh:        nh,
		sched:     sched,
		sync:      sync,
		consensus: ctx,
		timer:     NewRandomControlTimer(),
	}
	transport.OnPacket(n.handlePacket)
	sync.OnRequest(n.handleOutgoingRequest)
	return n, nil
}

func newChain(cfg *config.Config) (blockchain.BlockChain, error) {
	if !cfg.Store {
		return storage.NewInMemChain(), nil
	}
	return badgerstore.NewChain(cfg.DatabaseDir)
}

func newTransport(cfg *config.Config, self keys.PublicKey, logger *logrus.Entry) (commonnet.Transport, error) {
	if cfg.WebRTC {
		client, err := signalClient(cfg, self, logger)
		if err != nil {
			return nil, err
		}
		return commonnet.NewWebRTCTransport(self, client, cfg.ICEServers(), cfg.TCPTimeout, logger)
	}

	stream, err := commonnet.NewTCPStreamLayer(cfg.BindAddr, cfg.AdvertiseAddr)
	if err != nil {
		return nil, err
	}
	return commonnet.NewNetworkTransport(stream, self, cfg.TCPTimeout, logger), nil
}

// signalClient connects to the WAMP signaling server WebRTC transports use
// to exchange SDP offers, registering under self's hex identity.
func signalClient(cfg *config.Config, self keys.PublicKey, logger *logrus.Entry) (*wamp.Client, error) {
	return wamp.NewClient(
		cfg.SignalAddr,
		cfg.SignalRealm,
		self.String(),
		cfg.CertFile(),
		cfg.SignalSkipVerify,
		cfg.TCPTimeout,
		logger.WithField("component", "signal"),
	)
}

// Run starts accepting connections and begins the round driver, sync
// stall checker and scheduler consumer loop. It returns once Shutdown is
// called.
func (n *Node) Run() {
	n.setState(Running)

	n.transport.Listen()

	n.goFunc(n.sched.Run)
	n.goFunc(func() { n.timer.Run(roundTick) })
	n.goFunc(n.runRoundDriver)

	n.sched.Schedule(n.cfg.RendezvousWait*time.Duration(n.cfg.SyncStallThreshold), scheduler.Periodic, syncCheckTag, n.checkSync)

	n.waitRoutines()
}

// Shutdown stops the round driver, the scheduler and the transport, in
// that order so no callback runs against an already-closed transport.
func (n *Node) Shutdown() {
	if n.getState() == Shutdown {
		return
	}
	n.setState(Shutdown)

	n.timer.Shutdown()
	n.sched.Shutdown()
	if err := n.transport.Close(); err != nil {
		n.logger.WithError(err).Warn("error closing transport")
	}
}

func (n *Node) runRoundDriver() {
	for {
		select {
		case <-n.timer.tickCh:
			n.rotateRound()
		case <-n.timer.shutdownCh:
			return
		}
	}
}

// rotateRound elects this round's confidant set from the currently
// connected neighbours (plus self) and its writer by round-robin over the
// sorted confidant list, then applies and broadcasts the round table.
// Leader election proper is treated as an external collaborator to the
// core; this is the minimal driver needed for a standalone node to make
// progress without one.
func (n *Node) rotateRound() {
	n.round++

	var confidants []keys.PublicKey
	n.nh.ForEachNeighbour(func(p *peers.Peer) { confidants = append(confidants, p.Key()) })
	confidants = append(confidants, n.self)
	sort.Slice(confidants, func(i, j int) bool { return confidants[i].String() < confidants[j].String() })

	writer := confidants[int(n.round)%len(confidants)]

	rt := &consensus.RoundTable{Round: n.round, Confidants: confidants, Writer: writer}
	data, err := rt.Marshal()
	if err != nil {
		n.logger.WithError(err).Warn("failed to encode round table")
		return
	}
	n.nh.SetConfidants(confidantPeers(n.nh, confidants))
	n.nh.SendByNeighbours(wire.NewGossipPacket(wire.RoundTableMsg, n.self, data))
	n.consensus.HandleRoundTable(rt.Round, rt.Confidants, writer)
}

func confidantPeers(nh *neighbourhood.Neighbourhood, ids []keys.PublicKey) []*peers.Peer {
	var out []*peers.Peer
	for _, k := range ids {
		if p, ok := nh.Lookup(k); ok {
			out = append(out, p)
		}
	}
	return out
}

func (n *Node) checkSync() {
	n.consensus.CheckSync(n.round)
}

// handlePacket decodes an inbound frame and hops onto the scheduler's
// single consumer goroutine before touching the consensus/poolsync core,
// so only that goroutine ever mutates core state.
func (n *Node) handlePacket(bytes []byte, remote peers.Endpoint) {
	frame, err := wire.Decode(bytes)
	if err != nil {
		n.logger.WithError(err).WithField("remote", remote).Warn("dropping malformed frame")
		return
	}

	n.sched.Schedule(0, scheduler.Single, scheduler.NoTag, func() {
		if frame.Flags.Has(wire.NetworkMsg) {
			n.handleNetworkMsg(frame, remote)
			return
		}
		n.handleGossip(frame, bytes)
	})
}

func (n *Node) handleNetworkMsg(frame *wire.Frame, remote peers.Endpoint) {
	if frame.Flags.Has(wire.Reply) {
		reply, err := wire.DecodeBlockReply(frame.Payload)
		if err != nil {
			n.logger.WithError(err).Warn("dropping malformed block reply")
			return
		}
		n.sync.OnBlockReply(reply.Pools, reply.PacketID)
		return
	}

	req, err := wire.DecodeBlockRequest(frame.Payload)
	if err != nil {
		n.logger.WithError(err).Warn("dropping malformed block request")
		return
	}
	n.replyToRequest(req, remote)
}

func (n *Node) replyToRequest(req *wire.BlockRequest, remote peers.Endpoint) {
	reply := &wire.BlockReply{PacketID: req.PacketID}
	for _, seq := range req.Sequences {
		if pool, ok := n.chain.GetBlock(seq); ok {
			reply.Pools = append(reply.Pools, pool)
		}
	}
	data, err := reply.Encode()
	if err != nil {
		n.logger.WithError(err).Warn("failed to encode block reply")
		return
	}
	replyFrame := &wire.Frame{Flags: wire.NetworkMsg | wire.Reply, PacketCount: 1, Payload: data}
	if err := n.transport.Send(remote, replyFrame.Encode()); err != nil {
		n.logger.WithError(err).WithField("remote", remote).Warn("failed to send block reply")
	}
}

func (n *Node) handleGossip(frame *wire.Frame, raw []byte) {
	if frame.Sender != nil {
		if p, ok := n.nh.Lookup(*frame.Sender); ok {
			n.nh.NeighbourHasPacket(p, wire.NewPacket(raw).Hash(), false)
		}
	}

	env, err := wire.DecodeEnvelope(frame.Payload)
	if err != nil {
		n.logger.WithError(err).Warn("dropping malformed gossip payload")
		return
	}

	switch env.Kind {
	case wire.PoolMsg:
		pool := new(blockchain.Pool)
		if err := pool.Unmarshal(env.Body); err != nil {
			n.logger.WithError(err).Warn("dropping malformed pool")
			return
		}
		n.consensus.HandleBlock(pool.Round, pool, keys.PublicKey(pool.Writer))
	case wire.TransactionListMsg:
		list := new(blockchain.TransactionsPacket)
		if err := list.Unmarshal(env.Body); err != nil {
			n.logger.WithError(err).Warn("dropping malformed transaction list")
			return
		}
		n.consensus.HandleTransactionList(n.consensus.Round(), list)
	case wire.RoundTableMsg:
		rt := new(consensus.RoundTable)
		if err := rt.Unmarshal(env.Body); err != nil {
			n.logger.WithError(err).Warn("dropping malformed round table")
			return
		}
		n.nh.SetConfidants(confidantPeers(n.nh, rt.Confidants))
		n.consensus.HandleRoundTable(rt.Round, rt.Confidants, rt.Writer)
	case wire.VectorMsg:
		v := new(consensus.HashVector)
		if err := v.Unmarshal(env.Body); err != nil {
			n.logger.WithError(err).Warn("dropping malformed hash vector")
			return
		}
		n.consensus.HandleVector(*v)
	case wire.MatrixMsg:
		m := new(consensus.HashMatrix)
		if err := m.Unmarshal(env.Body); err != nil {
			n.logger.WithError(err).Warn("dropping malformed hash matrix")
			return
		}
		n.consensus.HandleMatrix(*m)
	default:
		n.logger.WithField("kind", env.Kind).Warn("dropping unknown gossip kind")
	}
}

// handleOutgoingRequest serializes and sends a PoolsRequest PoolSynchronizer
// asked to issue, addressed directly at its target peer.
func (n *Node) handleOutgoingRequest(req poolsync.PoolsRequest) {
	peer, ok := n.nh.Lookup(req.Target)
	if !ok {
		return
	}
	blockReq := &wire.BlockRequest{TargetKey: req.Target, PacketID: req.PacketID, Sequences: req.Sequences}
	n.nh.SendTo(peer, blockReq.Encode(), uint16(req.PacketID))
}
