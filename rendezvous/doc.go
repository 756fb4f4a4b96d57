// Package rendezvous implements DumbCv, a synchronous "await signal"
// primitive used to correlate an outgoing request with its eventual
// response when the caller must block for it: register a waiter keyed by a
// 64-byte signature, block on it, and have some other goroutine wake it
// with a Condition once the response (or a rejection) arrives.
package rendezvous
