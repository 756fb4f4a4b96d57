// Package poolsync implements PoolSynchronizer: missing-range detection,
// partitioning of requests across neighbours, timeout-driven reassignment,
// and reply reconciliation against a blockchain.BlockChain.
package poolsync
