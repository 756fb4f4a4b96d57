// Package node wires config, storage, transport, neighbourhood,
// scheduler, pool synchronization and the consensus state machine into a
// single running process (SPEC_FULL.md §4.11).
//
// Node owns no protocol logic of its own: it decodes inbound wire frames
// and routes them to the neighbourhood (peer connect/disconnect),
// PoolSynchronizer (block requests/replies) or consensus.Context
// (round tables, hash vectors/matrices, candidate blocks, transaction
// lists), and it elects the round table a standalone node needs to make
// progress in the absence of an external round-origination collaborator.
package node
