package net

import (
	"net"
	"strconv"

	"github.com/csnode/corenode/peers"
)

// parseEndpoint splits a "host:port" address, as returned by a
// StreamLayer's AdvertiseAddr, into a peers.Endpoint. An unparsable port
// yields a zero port rather than an error, since callers use this only for
// best-effort local-endpoint reporting.
func parseEndpoint(addr string) peers.Endpoint {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return peers.Endpoint{IP: addr}
	}
	port, _ := strconv.Atoi(portStr)
	return peers.Endpoint{IP: host, Port: port}
}
