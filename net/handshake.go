package net

import (
	"encoding/binary"
	"fmt"

	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/peers"
)

// Every new connection, inbound or outbound, opens with a handshake frame
// identifying the dialer: its public key and the endpoint it listens on, so
// the accepting side can fire OnPeerConnected with real identity instead of
// a bare socket address (which WebRTC data channels do not expose).
//
// Layout: key(32) | ip_len(1) | ip | port(2).
func encodeHandshake(key keys.PublicKey, local peers.Endpoint) []byte {
	ip := []byte(local.IP)
	buf := make([]byte, 32+1+len(ip)+2)
	copy(buf, key[:])
	buf[32] = byte(len(ip))
	copy(buf[33:], ip)
	binary.BigEndian.PutUint16(buf[33+len(ip):], uint16(local.Port))
	return buf
}

func decodeHandshake(buf []byte) (keys.PublicKey, peers.Endpoint, error) {
	if len(buf) < 33 {
		return keys.PublicKey{}, peers.Endpoint{}, fmt.Errorf("handshake frame too short: %d bytes", len(buf))
	}
	var key keys.PublicKey
	copy(key[:], buf[:32])

	ipLen := int(buf[32])
	if len(buf) < 33+ipLen+2 {
		return keys.PublicKey{}, peers.Endpoint{}, fmt.Errorf("handshake frame truncated")
	}
	ip := string(buf[33 : 33+ipLen])
	port := binary.BigEndian.Uint16(buf[33+ipLen : 33+ipLen+2])

	return key, peers.Endpoint{IP: ip, Port: int(port)}, nil
}
