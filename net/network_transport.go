package net

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/peers"
	"github.com/sirupsen/logrus"
)

// NetworkTransport implements Transport over a StreamLayer. It is agnostic
// to the underlying medium: plugged with a TCP listener it talks plain
// TCP, plugged with the WebRTC stream layer it talks WebRTC data channels.
type NetworkTransport struct {
	stream      StreamLayer
	localKey    keys.PublicKey
	dialTimeout time.Duration
	logger      *logrus.Entry

	mu    sync.Mutex
	conns map[peers.Endpoint]net.Conn

	onPacket       func(bytes []byte, remote peers.Endpoint)
	onPeerConnect  func(key keys.PublicKey, endpoint peers.Endpoint)
	onPeerDisconn  func(key keys.PublicKey)
	callbacksMu    sync.RWMutex

	shutdownCh chan struct{}
	shutdown   sync.Once
	wg         sync.WaitGroup
}

// NewNetworkTransport wraps stream as a Transport identifying itself with
// localKey. dialTimeout bounds outbound connection attempts.
func NewNetworkTransport(stream StreamLayer, localKey keys.PublicKey, dialTimeout time.Duration, logger *logrus.Entry) *NetworkTransport {
	return &NetworkTransport{
		stream:      stream,
		localKey:    localKey,
		dialTimeout: dialTimeout,
		logger:      logger,
		conns:       make(map[peers.Endpoint]net.Conn),
		shutdownCh:  make(chan struct{}),
	}
}

// Listen implements Transport.
func (t *NetworkTransport) Listen() {
	t.wg.Add(1)
	go t.acceptLoop()
}

func (t *NetworkTransport) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.stream.Accept()
		if err != nil {
			select {
			case <-t.shutdownCh:
				return
			default:
			}
			t.logger.WithError(err).Error("accept failed")
			continue
		}
		t.wg.Add(1)
		go t.handleInbound(conn)
	}
}

func (t *NetworkTransport) handleInbound(conn net.Conn) {
	defer t.wg.Done()

	frame, err := readFrame(conn)
	if err != nil {
		t.logger.WithError(err).Warn("inbound handshake failed")
		conn.Close()
		return
	}
	key, endpoint, err := decodeHandshake(frame)
	if err != nil {
		t.logger.WithError(err).Warn("malformed handshake")
		conn.Close()
		return
	}
	if err := writeFrame(conn, encodeHandshake(t.localKey, t.LocalEndpoint())); err != nil {
		t.logger.WithError(err).Warn("failed to answer handshake")
		conn.Close()
		return
	}

	t.mu.Lock()
	t.conns[endpoint] = conn
	t.mu.Unlock()

	t.fireConnected(key, endpoint)
	t.readLoop(conn, endpoint, key)
}

func (t *NetworkTransport) readLoop(conn net.Conn, endpoint peers.Endpoint, key keys.PublicKey) {
	for {
		frame, err := readFrame(conn)
		if err != nil {
			t.mu.Lock()
			if t.conns[endpoint] == conn {
				delete(t.conns, endpoint)
			}
			t.mu.Unlock()
			t.fireDisconnected(key)
			conn.Close()
			return
		}
		t.firePacket(frame, endpoint)
	}
}

// Send implements Transport: it reuses a cached connection to endpoint or
// dials a new one.
func (t *NetworkTransport) Send(endpoint peers.Endpoint, bytes []byte) error {
	conn, err := t.connFor(endpoint)
	if err != nil {
		return err
	}
	if err := writeFrame(conn, bytes); err != nil {
		t.mu.Lock()
		if t.conns[endpoint] == conn {
			delete(t.conns, endpoint)
		}
		t.mu.Unlock()
		return err
	}
	return nil
}

func (t *NetworkTransport) connFor(endpoint peers.Endpoint) (net.Conn, error) {
	t.mu.Lock()
	conn, ok := t.conns[endpoint]
	t.mu.Unlock()
	if ok {
		return conn, nil
	}

	conn, err := t.stream.Dial(endpoint.String(), t.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	if err := writeFrame(conn, encodeHandshake(t.localKey, t.LocalEndpoint())); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake to %s: %w", endpoint, err)
	}
	frame, err := readFrame(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake from %s: %w", endpoint, err)
	}
	remoteKey, _, err := decodeHandshake(frame)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("malformed handshake from %s: %w", endpoint, err)
	}

	t.mu.Lock()
	t.conns[endpoint] = conn
	t.mu.Unlock()

	t.fireConnected(remoteKey, endpoint)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.readLoop(conn, endpoint, remoteKey)
	}()

	return conn, nil
}

// LocalEndpoint implements Transport.
func (t *NetworkTransport) LocalEndpoint() peers.Endpoint {
	return parseEndpoint(t.stream.AdvertiseAddr())
}

// OnPacket implements Transport.
func (t *NetworkTransport) OnPacket(cb func(bytes []byte, remote peers.Endpoint)) {
	t.callbacksMu.Lock()
	defer t.callbacksMu.Unlock()
	t.onPacket = cb
}

// OnPeerConnected implements Transport.
func (t *NetworkTransport) OnPeerConnected(cb func(key keys.PublicKey, endpoint peers.Endpoint)) {
	t.callbacksMu.Lock()
	defer t.callbacksMu.Unlock()
	t.onPeerConnect = cb
}

// OnPeerDisconnected implements Transport.
func (t *NetworkTransport) OnPeerDisconnected(cb func(key keys.PublicKey)) {
	t.callbacksMu.Lock()
	defer t.callbacksMu.Unlock()
	t.onPeerDisconn = cb
}

func (t *NetworkTransport) firePacket(bytes []byte, remote peers.Endpoint) {
	t.callbacksMu.RLock()
	cb := t.onPacket
	t.callbacksMu.RUnlock()
	if cb != nil {
		cb(bytes, remote)
	}
}

func (t *NetworkTransport) fireConnected(key keys.PublicKey, endpoint peers.Endpoint) {
	t.callbacksMu.RLock()
	cb := t.onPeerConnect
	t.callbacksMu.RUnlock()
	if cb != nil {
		cb(key, endpoint)
	}
}

func (t *NetworkTransport) fireDisconnected(key keys.PublicKey) {
	if key.IsZero() {
		return
	}
	t.callbacksMu.RLock()
	cb := t.onPeerDisconn
	t.callbacksMu.RUnlock()
	if cb != nil {
		cb(key)
	}
}

// Close implements Transport.
func (t *NetworkTransport) Close() error {
	t.shutdown.Do(func() {
		close(t.shutdownCh)
		t.stream.Close()

		t.mu.Lock()
		for endpoint, conn := range t.conns {
			conn.Close()
			delete(t.conns, endpoint)
		}
		t.mu.Unlock()
	})
	t.wg.Wait()
	return nil
}
