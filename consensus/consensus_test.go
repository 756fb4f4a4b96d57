package consensus

import (
	"testing"

	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/common"
	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/net"
	"github.com/csnode/corenode/neighbourhood"
	"github.com/csnode/corenode/peers"
	"github.com/csnode/corenode/poolsync"
	"github.com/csnode/corenode/scheduler"
	"github.com/csnode/corenode/storage"
)

func testKey(b byte) keys.PublicKey {
	var k keys.PublicKey
	k[0] = b
	return k
}

func newTestContext(t *testing.T, self keys.PublicKey) (*Context, *storage.InMemChain) {
	t.Helper()
	chain := storage.NewInMemChain()
	transport := net.NewInmemTransport(peers.Endpoint{IP: "127.0.0.1", Port: 9100 + int(self[0])}, self)
	logger := common.NewTestLogger(t)
	nh := neighbourhood.NewNeighbourhood(transport, chain.LastSequence, logger.WithField("prefix", "neighbourhood"))
	sched := scheduler.NewRoundScheduler(logger.WithField("prefix", "scheduler"))
	go sched.Run()
	t.Cleanup(sched.Shutdown)

	sync := poolsync.New(chain, nh, sched, logger.WithField("prefix", "poolsync"))

	ctx := New(chain, nh, sync, sched, self, nil, logger.WithField("prefix", "consensus"))
	return ctx, chain
}

func TestNormalTransitionsToTrustedWhenConfidant(t *testing.T) {
	self := testKey(1)
	ctx, _ := newTestContext(t, self)

	result := ctx.HandleRoundTable(1, []keys.PublicKey{self, testKey(2)}, self)
	if result != Finish {
		t.Fatalf("expected Finish, got %v", result)
	}
	if ctx.State() != Trusted {
		t.Fatalf("expected Trusted, got %v", ctx.State())
	}
}

func TestNormalStaysNormalWhenNotConfidant(t *testing.T) {
	self := testKey(1)
	ctx, _ := newTestContext(t, self)

	result := ctx.HandleRoundTable(1, []keys.PublicKey{testKey(2), testKey(3)}, testKey(2))
	if result != Continue {
		t.Fatalf("expected Continue, got %v", result)
	}
	if ctx.State() != Normal {
		t.Fatalf("expected Normal, got %v", ctx.State())
	}
}

func TestTrustedCompletesToWriterWhenSelfIsWriter(t *testing.T) {
	self := testKey(1)
	other := testKey(2)
	ctx, _ := newTestContext(t, self)

	ctx.HandleRoundTable(1, []keys.PublicKey{self, other}, self)
	if ctx.State() != Trusted {
		t.Fatalf("expected Trusted after round-table, got %v", ctx.State())
	}

	if r := ctx.HandleVector(HashVector{Sender: other, Round: 1, Hash: common.HashBytes([]byte("other-vector"))}); r != Continue {
		t.Fatalf("expected Continue after vectors complete but matrices pending, got %v", r)
	}
	if ctx.State() != Trusted {
		t.Fatalf("expected to remain Trusted awaiting matrices, got %v", ctx.State())
	}

	result := ctx.HandleMatrix(HashMatrix{Sender: other, Round: 1, Hash: common.HashBytes([]byte("other-matrix"))})
	if result != Finish {
		t.Fatalf("expected Finish once matrices complete, got %v", result)
	}
	if ctx.State() != Writer {
		t.Fatalf("expected Writer since self is the round's writer, got %v", ctx.State())
	}
}

func TestTrustedCompletesToCollectWhenNotWriter(t *testing.T) {
	self := testKey(1)
	other := testKey(2)
	ctx, _ := newTestContext(t, self)

	ctx.HandleRoundTable(1, []keys.PublicKey{self, other}, other)
	ctx.HandleVector(HashVector{Sender: other, Round: 1, Hash: common.HashBytes([]byte("v"))})
	result := ctx.HandleMatrix(HashMatrix{Sender: other, Round: 1, Hash: common.HashBytes([]byte("m"))})

	if result != Finish {
		t.Fatalf("expected Finish, got %v", result)
	}
	if ctx.State() != Collect {
		t.Fatalf("expected Collect since other is the round's writer, got %v", ctx.State())
	}
}

func TestCollectStoresWriterBlockAndReturnsToNormal(t *testing.T) {
	self := testKey(1)
	writer := testKey(2)
	ctx, chain := newTestContext(t, self)

	ctx.HandleRoundTable(1, []keys.PublicKey{self, writer}, writer)
	ctx.HandleVector(HashVector{Sender: writer, Round: 1, Hash: common.HashBytes([]byte("v"))})
	ctx.HandleMatrix(HashMatrix{Sender: writer, Round: 1, Hash: common.HashBytes([]byte("m"))})
	if ctx.State() != Collect {
		t.Fatalf("expected Collect, got %v", ctx.State())
	}

	block := &blockchain.Pool{Seq: 1, Round: 1, Writer: [32]byte(writer)}
	result := ctx.HandleBlock(1, block, writer)
	if result != Finish {
		t.Fatalf("expected Finish, got %v", result)
	}
	if ctx.State() != Normal {
		t.Fatalf("expected Normal after storing the writer's block, got %v", ctx.State())
	}
	if chain.LastSequence() != 1 {
		t.Fatalf("expected the writer's block to be stored, last_sequence=%d", chain.LastSequence())
	}
}

func TestCollectIgnoresBlockFromNonWriter(t *testing.T) {
	self := testKey(1)
	writer := testKey(2)
	impostor := testKey(3)
	ctx, _ := newTestContext(t, self)

	ctx.HandleRoundTable(1, []keys.PublicKey{self, writer}, writer)
	ctx.HandleVector(HashVector{Sender: writer, Round: 1, Hash: common.HashBytes([]byte("v"))})
	ctx.HandleMatrix(HashMatrix{Sender: writer, Round: 1, Hash: common.HashBytes([]byte("m"))})

	block := &blockchain.Pool{Seq: 1, Round: 1, Writer: [32]byte(impostor)}
	result := ctx.HandleBlock(1, block, impostor)
	if result != Ignore {
		t.Fatalf("expected Ignore for a block from a non-writer sender, got %v", result)
	}
	if ctx.State() != Collect {
		t.Fatalf("expected to remain Collect, got %v", ctx.State())
	}
}

func TestCollectEscalatesToWriteTxOnRoundEndWithoutBlock(t *testing.T) {
	self := testKey(1)
	writer := testKey(2)
	ctx, chain := newTestContext(t, self)

	ctx.HandleRoundTable(1, []keys.PublicKey{self, writer}, writer)
	ctx.HandleVector(HashVector{Sender: writer, Round: 1, Hash: common.HashBytes([]byte("v"))})
	ctx.HandleMatrix(HashMatrix{Sender: writer, Round: 1, Hash: common.HashBytes([]byte("m"))})
	if ctx.State() != Collect {
		t.Fatalf("expected Collect, got %v", ctx.State())
	}

	ctx.HandleRoundEnd()
	if ctx.State() != WriteTx {
		t.Fatalf("expected WriteTx fallback since the writer's block never arrived, got %v", ctx.State())
	}
	if chain.LastSequence() != 1 {
		t.Fatalf("expected the fallback block to be stored, last_sequence=%d", chain.LastSequence())
	}

	ctx.HandleRoundEnd()
	if ctx.State() != Normal {
		t.Fatalf("expected Normal after WriteTx closes out, got %v", ctx.State())
	}
}

func TestWriterReturnsToNormalOnRoundEnd(t *testing.T) {
	self := testKey(1)
	other := testKey(2)
	ctx, chain := newTestContext(t, self)

	ctx.HandleRoundTable(1, []keys.PublicKey{self, other}, self)
	ctx.HandleVector(HashVector{Sender: other, Round: 1, Hash: common.HashBytes([]byte("v"))})
	ctx.HandleMatrix(HashMatrix{Sender: other, Round: 1, Hash: common.HashBytes([]byte("m"))})
	if ctx.State() != Writer {
		t.Fatalf("expected Writer, got %v", ctx.State())
	}
	if chain.LastSequence() != 1 {
		t.Fatalf("expected the writer to have stored its own block, last_sequence=%d", chain.LastSequence())
	}

	ctx.HandleRoundEnd()
	if ctx.State() != Normal {
		t.Fatalf("expected Normal after round end, got %v", ctx.State())
	}
}

// Round skip in Trusted state adopts the new round
// and clears the prior round's accumulators.
func TestRoundSkipInTrustedAdoptsAndResetsAccumulators(t *testing.T) {
	self := testKey(1)
	other := testKey(2)
	ctx, _ := newTestContext(t, self)

	ctx.HandleRoundTable(1, []keys.PublicKey{self, other}, other)
	if ctx.State() != Trusted || ctx.Round() != 1 {
		t.Fatalf("expected Trusted at round 1, got state=%v round=%d", ctx.State(), ctx.Round())
	}
	ctx.HandleVector(HashVector{Sender: other, Round: 1, Hash: common.HashBytes([]byte("stale"))})
	if !ctx.VectorsComplete() {
		t.Fatalf("expected vectors complete for round 1 before the skip")
	}

	result := ctx.HandleRoundTable(3, []keys.PublicKey{self, other}, other)
	if result != Continue {
		t.Fatalf("expected Continue immediately after the round skip, got %v", result)
	}
	if ctx.State() != Trusted {
		t.Fatalf("expected to re-enter Trusted, got %v", ctx.State())
	}
	if ctx.Round() != 3 {
		t.Fatalf("expected round adopted to 3, got %d", ctx.Round())
	}
	if ctx.VectorsComplete() {
		t.Fatalf("expected the round-1 vector accumulator to have been cleared on the skip")
	}
}

func TestNormalFlushSendsPendingTransactionsAndTracksCounter(t *testing.T) {
	self := testKey(1)
	ctx, _ := newTestContext(t, self)

	pool := &TransactionList{Sender: [32]byte(testKey(2)), Transactions: []blockchain.Transaction{[]byte("tx-1")}}
	if r := ctx.HandleTransactionList(0, pool); r != Continue {
		t.Fatalf("expected Continue, got %v", r)
	}

	ctx.flushTransactions()
	if ctx.flushedCounter != 1 {
		t.Fatalf("expected flushedCounter == 1, got %d", ctx.flushedCounter)
	}
	if len(ctx.pendingTx) != 0 {
		t.Fatalf("expected the pending pool to be cleared after flush, got %d entries", len(ctx.pendingTx))
	}
}

func TestSpamGeneratorFillsPendingPoolPerTarget(t *testing.T) {
	self := testKey(1)
	chain := storage.NewInMemChain()
	transport := net.NewInmemTransport(peers.Endpoint{IP: "127.0.0.1", Port: 9200}, self)
	logger := common.NewTestLogger(t)
	nh := neighbourhood.NewNeighbourhood(transport, chain.LastSequence, logger.WithField("prefix", "neighbourhood"))
	sched := scheduler.NewRoundScheduler(logger.WithField("prefix", "scheduler"))
	go sched.Run()
	t.Cleanup(sched.Shutdown)
	sync := poolsync.New(chain, nh, sched, logger.WithField("prefix", "poolsync"))

	targets := [][32]byte{testKey(9), testKey(10)}
	ctx := New(chain, nh, sync, sched, self, nil, logger.WithField("prefix", "consensus"), WithSpamGenerator(3, targets))

	ctx.generateSpam()
	if len(ctx.pendingTx) != 3*len(targets) {
		t.Fatalf("expected %d synthetic transactions, got %d", 3*len(targets), len(ctx.pendingTx))
	}
}
