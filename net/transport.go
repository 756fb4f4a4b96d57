package net

import (
	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/peers"
)

// Transport delivers opaque byte frames between this node and remote
// endpoints. It carries no knowledge of packet contents; framing, hashing
// and routing decisions belong to the wire and neighbourhood packages.
type Transport interface {
	// Send transmits bytes to endpoint, dialing a new connection if none is
	// cached for it.
	Send(endpoint peers.Endpoint, bytes []byte) error

	// OnPacket registers cb to be invoked for every frame received from any
	// connected peer. Only one callback is retained; registering again
	// replaces it.
	OnPacket(cb func(bytes []byte, remote peers.Endpoint))

	// OnPeerConnected registers cb to be invoked once a remote identifies
	// itself over a new connection, inbound or outbound.
	OnPeerConnected(cb func(key keys.PublicKey, endpoint peers.Endpoint))

	// OnPeerDisconnected registers cb to be invoked when a connection to a
	// previously-identified peer is lost.
	OnPeerDisconnected(cb func(key keys.PublicKey))

	// LocalEndpoint returns the endpoint this transport listens on.
	LocalEndpoint() peers.Endpoint

	// Listen starts accepting inbound connections. It returns immediately;
	// accepting happens on its own goroutine.
	Listen()

	// Close permanently shuts down the transport, closing every
	// connection and stopping its accept loop.
	Close() error
}
