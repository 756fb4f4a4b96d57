package net

import (
	"time"

	"github.com/csnode/corenode/crypto/keys"
	"github.com/csnode/corenode/net/signal"
	webrtc "github.com/pion/webrtc/v2"
	"github.com/sirupsen/logrus"
)

// NewWebRTCTransport returns a NetworkTransport built on top of a WebRTC
// StreamLayer. signal is the mechanism peers use to exchange connection
// information prior to establishing a direct p2p data channel.
func NewWebRTCTransport(
	localKey keys.PublicKey,
	sig signal.Signal,
	iceServers []webrtc.ICEServer,
	dialTimeout time.Duration,
	logger *logrus.Entry,
) (*NetworkTransport, error) {
	stream := NewWebRTCStreamLayer(sig, iceServers, logger)
	go stream.listen()

	return NewNetworkTransport(stream, localKey, dialTimeout, logger), nil
}
