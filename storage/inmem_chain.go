package storage

import (
	"sync"

	"github.com/csnode/corenode/blockchain"
)

// InMemChain is a map-backed blockchain.BlockChain guarded by a mutex.
// It never rejects a well-formed contiguous append and is intended for
// tests, not production use.
type InMemChain struct {
	blockchain.Subscribers

	mu     sync.RWMutex
	blocks map[blockchain.Sequence]*blockchain.Pool
	last   blockchain.Sequence
}

// NewInMemChain returns an empty chain.
func NewInMemChain() *InMemChain {
	return &InMemChain{
		blocks: make(map[blockchain.Sequence]*blockchain.Pool),
	}
}

// LastSequence implements blockchain.BlockChain.
func (c *InMemChain) LastSequence() blockchain.Sequence {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// StoreBlock implements blockchain.BlockChain. A pool is Invalid if its
// sequence is neither the next expected one nor already stored.
func (c *InMemChain) StoreBlock(pool *blockchain.Pool) (blockchain.StoreResult, error) {
	c.mu.Lock()

	if _, exists := c.blocks[pool.Seq]; exists {
		c.mu.Unlock()
		return blockchain.Duplicate, nil
	}
	if pool.Seq != c.last+1 && !(c.last == 0 && pool.Seq == 0) {
		c.mu.Unlock()
		return blockchain.Invalid, nil
	}

	c.blocks[pool.Seq] = pool
	if pool.Seq > c.last {
		c.last = pool.Seq
	}
	c.mu.Unlock()

	c.FireStored(pool.Seq)
	return blockchain.Stored, nil
}

// GetBlock implements blockchain.BlockChain.
func (c *InMemChain) GetBlock(seq blockchain.Sequence) (*blockchain.Pool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.blocks[seq]
	return p, ok
}
