package consensus

import (
	"github.com/csnode/corenode/blockchain"
	"github.com/csnode/corenode/crypto/keys"
)

// RoundTable is the wire form of an on_round_table event: a
// round's designated confidant set and writer, broadcast by whichever
// component originates rounds (the node loop's round driver) and fed
// into every recipient's Context.HandleRoundTable.
type RoundTable struct {
	Round      blockchain.RoundNumber
	Confidants []keys.PublicKey
	Writer     keys.PublicKey
}

// Marshal renders the round table as canonical JSON, matching the rest
// of the package's wire payloads.
func (rt *RoundTable) Marshal() ([]byte, error) {
	return marshalCanonical(rt)
}

// Unmarshal decodes a round table previously produced by Marshal.
func (rt *RoundTable) Unmarshal(data []byte) error {
	return unmarshalCanonical(data, rt)
}
