package consensus

import (
	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/crypto/keys"
)

// collectHandler is a non-writer confidant waiting to receive and store
// the round's block. Still being the active state at round end means the
// writer's block never arrived; HandleRoundEnd escalates that case to
// WriteTx rather than collectHandler itself, since OnRoundEnd has no
// Result to transition on.
type collectHandler struct {
	DefaultHandler
}

func (h *collectHandler) OnBlock(ctx *Context, block *blockchain.Pool, sender keys.PublicKey) Result {
	if sender != ctx.writer {
		return Ignore
	}

	result, err := ctx.chain.StoreBlock(block)
	if err != nil || result == blockchain.Invalid {
		ctx.log.WithError(err).WithField("sequence", block.Sequence()).Warn("rejected writer's block")
		return Failure
	}
	return Finish
}
