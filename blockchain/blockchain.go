package blockchain

import "sync"

// StoreResult is the outcome of a StoreBlock call.
type StoreResult int

const (
	// Stored: the pool was accepted and persisted.
	Stored StoreResult = iota
	// Duplicate: a pool at this sequence was already stored; the call was
	// idempotent and had no effect.
	Duplicate
	// Invalid: the pool failed a chain-level check (e.g. non-contiguous
	// sequence, malformed content) and was rejected.
	Invalid
)

func (r StoreResult) String() string {
	switch r {
	case Stored:
		return "stored"
	case Duplicate:
		return "duplicate"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// BlockChain is the persistence collaborator the core consumes. It is
// treated as opaque storage: the core only relies on LastSequence,
// StoreBlock, GetBlock and the two stored/removed signals.
type BlockChain interface {
	// LastSequence returns the height of the highest stored pool, or 0 if
	// the chain is empty.
	LastSequence() Sequence

	// StoreBlock persists pool, returning whether it was newly stored, a
	// duplicate, or rejected as invalid.
	StoreBlock(pool *Pool) (StoreResult, error)

	// GetBlock returns the pool at seq, if stored.
	GetBlock(seq Sequence) (*Pool, bool)

	// OnBlockStored registers cb to fire after every successful StoreBlock.
	OnBlockStored(cb func(seq Sequence))

	// OnBlockRemoved registers cb to fire whenever a previously stored
	// pool is removed (e.g. during a reorg-free pruning pass).
	OnBlockRemoved(cb func(seq Sequence))
}

// Subscribers is an embeddable helper for BlockChain implementations: it
// tracks and fires the OnBlockStored/OnBlockRemoved callbacks so each
// concrete chain does not have to reimplement the bookkeeping.
type Subscribers struct {
	mu        sync.RWMutex
	onStored  []func(seq Sequence)
	onRemoved []func(seq Sequence)
}

// OnBlockStored implements the corresponding BlockChain method.
func (s *Subscribers) OnBlockStored(cb func(seq Sequence)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStored = append(s.onStored, cb)
}

// OnBlockRemoved implements the corresponding BlockChain method.
func (s *Subscribers) OnBlockRemoved(cb func(seq Sequence)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemoved = append(s.onRemoved, cb)
}

// FireStored invokes every registered OnBlockStored callback.
func (s *Subscribers) FireStored(seq Sequence) {
	s.mu.RLock()
	cbs := append([]func(Sequence){}, s.onStored...)
	s.mu.RUnlock()
	for _, cb := range cbs {
		cb(seq)
	}
}

// FireRemoved invokes every registered OnBlockRemoved callback.
func (s *Subscribers) FireRemoved(seq Sequence) {
	s.mu.RLock()
	cbs := append([]func(Sequence){}, s.onRemoved...)
	s.mu.RUnlock()
	for _, cb := range cbs {
		cb(seq)
	}
}
