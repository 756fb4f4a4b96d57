package consensus

// writerHandler is the confidant selected to produce this round's
// block: it composes, signs and broadcasts it once, on entry, then
// waits for HandleRoundEnd to close the round out.
type writerHandler struct {
	DefaultHandler
}

func (h *writerHandler) OnEnter(ctx *Context) {
	block := ctx.ComposeBlock()
	ctx.BroadcastBlock(block)
	if _, err := ctx.chain.StoreBlock(block); err != nil {
		ctx.log.WithError(err).Warn("writer failed to store its own composed block")
	}
}
