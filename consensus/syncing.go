package consensus

// syncingHandler defers entirely to PoolSynchronizer: it is entered by
// Context.CheckSync forcing the role switch (not through the Result
// transition table) and exited by finishSyncing once the synchronizer
// reports completion.
type syncingHandler struct {
	DefaultHandler
}

func (h *syncingHandler) OnEnter(ctx *Context) {
	ctx.sync.OnFinished(ctx.finishSyncing)
}
