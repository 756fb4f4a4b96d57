package neighbourhood

// Capacity and retry constants, recovered from
// original_source/net/include/net/neighbourhood.hpp.
const (
	// MinConnections is the floor below which the node treats itself as
	// isolated.
	MinConnections = 1
	// MaxConnections is the total number of peer identities tracked,
	// gossiping or not.
	MaxConnections = 1024
	// MaxNeighbours is the size of the active gossip set.
	MaxNeighbours = 256
	// MinNeighbours is the floor below which the node actively dials for
	// more peers.
	MinNeighbours = 3

	// MaxMessagesToKeep bounds each peer's MsgRel dedup map.
	MaxMessagesToKeep = 128
	// MaxResendTimes is the number of retries a broadcast packet gets
	// against a single unresponsive peer before that peer is struck and
	// the packet dropped for it.
	MaxResendTimes = 4

	// StrikesUntilBlackList is the strike count at which a peer is
	// black-listed and evicted from the active sets. The original left
	// this implementation-defined, recommending 16; adopted verbatim.
	StrikesUntilBlackList = 16
)
