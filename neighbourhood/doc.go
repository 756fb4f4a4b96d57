// Package neighbourhood manages the active peer set: registration,
// classification into neighbour/confidant/signal-server roles, broadcast
// and directed delivery with bounded retry, and strike-based
// black-listing.
//
// A single Connection-style struct combining identity, transport state
// and per-peer bookkeeping is split here between peers.Peer (identity,
// endpoint, dedup map, strike counters) and this package's bookkeeping of
// which peers are currently neighbours, confidants, or merely known
// connections.
package neighbourhood
