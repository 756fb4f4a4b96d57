package net

import (
	"fmt"
	"sync"

	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/peers"
)

// InmemTransport implements Transport by routing directly between
// in-process peers, so that neighbourhood/poolsync/consensus tests can run
// without any actual network I/O.
type InmemTransport struct {
	mu       sync.RWMutex
	local    peers.Endpoint
	localKey keys.PublicKey
	peers    map[peers.Endpoint]*InmemTransport

	callbacksMu   sync.RWMutex
	onPacket      func(bytes []byte, remote peers.Endpoint)
	onPeerConnect func(key keys.PublicKey, endpoint peers.Endpoint)
	onPeerDisconn func(key keys.PublicKey)

	closed bool
}

// NewInmemTransport returns a transport addressed at local, identifying
// itself with localKey.
func NewInmemTransport(local peers.Endpoint, localKey keys.PublicKey) *InmemTransport {
	return &InmemTransport{
		local:    local,
		localKey: localKey,
		peers:    make(map[peers.Endpoint]*InmemTransport),
	}
}

// Connect wires this transport and other together bidirectionally and
// fires OnPeerConnected on both sides, mirroring a real handshake.
func (i *InmemTransport) Connect(other *InmemTransport) {
	i.mu.Lock()
	i.peers[other.local] = other
	i.mu.Unlock()

	other.mu.Lock()
	other.peers[i.local] = i
	other.mu.Unlock()

	i.fireConnected(other.localKey, other.local)
	other.fireConnected(i.localKey, i.local)
}

// Disconnect removes the route to other and fires OnPeerDisconnected on
// both sides.
func (i *InmemTransport) Disconnect(other *InmemTransport) {
	i.mu.Lock()
	delete(i.peers, other.local)
	i.mu.Unlock()

	other.mu.Lock()
	delete(other.peers, i.local)
	other.mu.Unlock()

	i.fireDisconnected(other.localKey)
	other.fireDisconnected(i.localKey)
}

// Send implements Transport.
func (i *InmemTransport) Send(endpoint peers.Endpoint, bytes []byte) error {
	i.mu.RLock()
	peer, ok := i.peers[endpoint]
	closed := i.closed
	i.mu.RUnlock()

	if closed {
		return fmt.Errorf("transport closed")
	}
	if !ok {
		return fmt.Errorf("no route to %s", endpoint)
	}

	frame := make([]byte, len(bytes))
	copy(frame, bytes)
	peer.firePacket(frame, i.local)
	return nil
}

// LocalEndpoint implements Transport.
func (i *InmemTransport) LocalEndpoint() peers.Endpoint {
	return i.local
}

// OnPacket implements Transport.
func (i *InmemTransport) OnPacket(cb func(bytes []byte, remote peers.Endpoint)) {
	i.callbacksMu.Lock()
	defer i.callbacksMu.Unlock()
	i.onPacket = cb
}

// OnPeerConnected implements Transport.
func (i *InmemTransport) OnPeerConnected(cb func(key keys.PublicKey, endpoint peers.Endpoint)) {
	i.callbacksMu.Lock()
	defer i.callbacksMu.Unlock()
	i.onPeerConnect = cb
}

// OnPeerDisconnected implements Transport.
func (i *InmemTransport) OnPeerDisconnected(cb func(key keys.PublicKey)) {
	i.callbacksMu.Lock()
	defer i.callbacksMu.Unlock()
	i.onPeerDisconn = cb
}

func (i *InmemTransport) firePacket(bytes []byte, remote peers.Endpoint) {
	i.callbacksMu.RLock()
	cb := i.onPacket
	i.callbacksMu.RUnlock()
	if cb != nil {
		cb(bytes, remote)
	}
}

func (i *InmemTransport) fireConnected(key keys.PublicKey, endpoint peers.Endpoint) {
	i.callbacksMu.RLock()
	cb := i.onPeerConnect
	i.callbacksMu.RUnlock()
	if cb != nil {
		cb(key, endpoint)
	}
}

func (i *InmemTransport) fireDisconnected(key keys.PublicKey) {
	i.callbacksMu.RLock()
	cb := i.onPeerDisconn
	i.callbacksMu.RUnlock()
	if cb != nil {
		cb(key)
	}
}

// Listen is a no-op: an InmemTransport requires no accept loop.
func (i *InmemTransport) Listen() {}

// Close implements Transport: it severs every route. Registered callbacks
// are left in place.
func (i *InmemTransport) Close() error {
	i.mu.Lock()
	i.closed = true
	for endpoint := range i.peers {
		delete(i.peers, endpoint)
	}
	i.mu.Unlock()
	return nil
}
