package peers

// Class classifies how the neighbourhood treats a peer.
type Class int

const (
	// Neighbour is a general gossip peer.
	Neighbour Class = iota
	// Confidant is a member of the current round's trusted set. The
	// confidant set is reset at the start of every round.
	Confidant
	// SignalServer is a bootstrap peer used only to exchange connection
	// information (e.g. WebRTC SDP offers), never gossiped to.
	SignalServer
)

func (c Class) String() string {
	switch c {
	case Neighbour:
		return "neighbour"
	case Confidant:
		return "confidant"
	case SignalServer:
		return "signal-server"
	default:
		return "unknown"
	}
}
