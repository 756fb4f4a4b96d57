package consensus

import "github.com/csnode/corenode/blockchain"

// trustedHandler accumulates this round's HashVector and HashMatrix
// contributions from every confidant. Spec §4.3 names four sub-variants
// (Trusted/TrustedV/TrustedM/TrustedVM) distinguished only by which
// contributions have arrived so far; TrustedVariantName renders that
// label from a hasVector/hasMatrix flag pair without a separate StateKind
// per variant.
type trustedHandler struct {
	DefaultHandler
}

func (h *trustedHandler) OnEnter(ctx *Context) {
	ctx.BroadcastVector(HashVector{Sender: ctx.self, Round: ctx.round, Hash: ctx.selfVectorHash()})
}

// OnRoundTable acknowledges a round-table received while already
// Trusted. Any round adoption it implies has already happened in
// Context.HandleRoundTable before this runs; Continue simply confirms
// the event was absorbed without ending the accumulation phase.
func (h *trustedHandler) OnRoundTable(ctx *Context, round blockchain.RoundNumber) Result {
	return Continue
}

func (h *trustedHandler) OnVector(ctx *Context, vect HashVector) Result {
	ctx.RecordVector(vect)

	if ctx.VectorsComplete() && !ctx.sentMatrix {
		ctx.BroadcastMatrix(HashMatrix{Sender: ctx.self, Round: ctx.round, Hash: ctx.computeMatrixHash()})
	}
	if ctx.VectorsComplete() && ctx.MatricesComplete() {
		return Finish
	}
	return Continue
}

func (h *trustedHandler) OnMatrix(ctx *Context, matr HashMatrix) Result {
	ctx.RecordMatrix(matr)

	if ctx.VectorsComplete() && ctx.MatricesComplete() {
		return Finish
	}
	return Continue
}

func (h *trustedHandler) OnTransactionList(ctx *Context, pool *TransactionList) Result {
	ctx.EnqueueTransactionList(pool)
	return Continue
}
