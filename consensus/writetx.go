package consensus

// writeTxHandler composes and broadcasts a transaction-only block when
// the round's designated writer failed to produce a regular one in
// time, reached only via Collect's round-end escalation.
type writeTxHandler struct {
	DefaultHandler
}

func (h *writeTxHandler) OnEnter(ctx *Context) {
	block := ctx.ComposeBlock()
	ctx.BroadcastBlock(block)
	if _, err := ctx.chain.StoreBlock(block); err != nil {
		ctx.log.WithError(err).Warn("writeTx failed to store its fallback block")
	}
}
