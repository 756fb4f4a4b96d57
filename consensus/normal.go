package consensus

import (
	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/scheduler"
)

// normalHandler is the idle gossiping role: it flushes the locally
// accumulated transaction pool on a timer and watches for this node's
// key to appear in the next round-table's confidant list.
type normalHandler struct {
	DefaultHandler
}

func (h *normalHandler) OnEnter(ctx *Context) {
	ctx.flushedCounter = 0
	ctx.sched.Schedule(FlushInterval, scheduler.Periodic, flushTag, ctx.flushTransactions)
	if ctx.spamEnabled {
		ctx.sched.Schedule(FlushInterval, scheduler.Periodic, spamTag, ctx.generateSpam)
	}
}

func (h *normalHandler) OnExit(ctx *Context) {
	ctx.sched.Cancel(flushTag)
	if ctx.spamEnabled {
		ctx.sched.Cancel(spamTag)
	}
}

func (h *normalHandler) OnRoundTable(ctx *Context, round blockchain.RoundNumber) Result {
	if ctx.IsConfidant() {
		return Finish
	}
	return Continue
}

func (h *normalHandler) OnTransactionList(ctx *Context, pool *TransactionList) Result {
	ctx.EnqueueTransactionList(pool)
	return Continue
}
