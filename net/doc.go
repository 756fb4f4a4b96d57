// Package net implements transports used to deliver packets between
// csnode instances.
//
// A Transport knows nothing about block requests, rounds, or consensus; it
// exchanges opaque byte frames with a remote Endpoint and reports peer
// connect/disconnect and inbound packet events through callbacks. Two
// implementations are provided:
//
// - InmemTransport: an in-process, map-routed transport used by tests.
//
// - NetworkTransport: a StreamLayer-backed transport. Plugged with a plain
// TCP StreamLayer it communicates over a local network; plugged with the
// WebRTC StreamLayer (see NewWebRTCTransport) it punches through NATs using
// a signaling server for connection setup while keeping the actual packet
// exchange peer-to-peer.
//
// To use a WebRTC transport, set the WebRTC configuration properties (cf.
// the config package): SignalAddr, the address of the WebRTC signaling
// server, and SignalRealm, the routing domain within it. The signaling
// server is only used for peers to exchange connection information; once
// established, packets flow directly between peers.
package net
