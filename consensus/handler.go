package consensus

import (
	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/crypto/keys"
)

// Handler is the capability set every state implements. Only
// the methods meaningful for a given state need overriding; embedding
// DefaultHandler supplies an Ignore/no-op implementation of the rest, so
// concrete states read as a short list of overrides rather than a full
// interface implementation each.
type Handler interface {
	OnEnter(ctx *Context)
	OnExit(ctx *Context)
	OnRoundEnd(ctx *Context)
	OnRoundTable(ctx *Context, round blockchain.RoundNumber) Result
	OnBlock(ctx *Context, block *blockchain.Pool, sender keys.PublicKey) Result
	OnVector(ctx *Context, vect HashVector) Result
	OnMatrix(ctx *Context, matr HashMatrix) Result
	OnTransactionList(ctx *Context, pool *TransactionList) Result
}

// DefaultHandler implements Handler with no-op lifecycle hooks and
// Ignore-returning event handlers. Concrete states embed it and override
// only what they care about, matching the repository's "default handler
// returns Ignore" rule.
type DefaultHandler struct{}

func (DefaultHandler) OnEnter(ctx *Context) {}
func (DefaultHandler) OnExit(ctx *Context)  {}
func (DefaultHandler) OnRoundEnd(ctx *Context) {}

func (DefaultHandler) OnRoundTable(ctx *Context, round blockchain.RoundNumber) Result {
	return Ignore
}

func (DefaultHandler) OnBlock(ctx *Context, block *blockchain.Pool, sender keys.PublicKey) Result {
	return Ignore
}

func (DefaultHandler) OnVector(ctx *Context, vect HashVector) Result {
	return Ignore
}

func (DefaultHandler) OnMatrix(ctx *Context, matr HashMatrix) Result {
	return Ignore
}

func (DefaultHandler) OnTransactionList(ctx *Context, pool *TransactionList) Result {
	return Ignore
}
