package peers

import "sort"

// RemovalMode selects how RequestQueue.Remove interprets its argument,
// mirroring the synchronizer's three sequence-removal accuracy modes.
type RemovalMode int

const (
	// Exact removes a single value.
	Exact RemovalMode = iota
	// LowerBound removes every value <= the given one; used once the
	// chain tip advances past a peer's outstanding low-water mark.
	LowerBound
	// UpperBound removes every value >= the given one.
	UpperBound
)

// RequestQueue is a peer's outstanding block-sequence request set: a
// strictly sorted, deduplicated queue of Sequence values, one per Peer.
// Contains answers membership
// against the same sorted data the queue is built from, so unlike a
// bitheap window it stays accurate across removals; PoolSynchronizer
// relies on that to reject stale replies once a sequence has been
// reassigned.
type RequestQueue struct {
	seqs []uint64
}

// NewRequestQueue returns an empty RequestQueue.
func NewRequestQueue() *RequestQueue {
	return &RequestQueue{}
}

// Push records seq, keeping the queue sorted and deduplicated. A seq
// already present is a no-op.
func (q *RequestQueue) Push(seq uint64) {
	i := sort.Search(len(q.seqs), func(i int) bool { return q.seqs[i] >= seq })
	if i < len(q.seqs) && q.seqs[i] == seq {
		return
	}
	q.seqs = append(q.seqs, 0)
	copy(q.seqs[i+1:], q.seqs[i:])
	q.seqs[i] = seq
}

// Contains reports whether seq is currently queued.
func (q *RequestQueue) Contains(seq uint64) bool {
	i := sort.Search(len(q.seqs), func(i int) bool { return q.seqs[i] >= seq })
	return i < len(q.seqs) && q.seqs[i] == seq
}

// Front returns the smallest queued sequence.
func (q *RequestQueue) Front() (uint64, bool) {
	if len(q.seqs) == 0 {
		return 0, false
	}
	return q.seqs[0], true
}

// Back returns the largest queued sequence.
func (q *RequestQueue) Back() (uint64, bool) {
	if len(q.seqs) == 0 {
		return 0, false
	}
	return q.seqs[len(q.seqs)-1], true
}

// Len returns the number of queued sequences.
func (q *RequestQueue) Len() int {
	return len(q.seqs)
}

// Empty reports whether the queue holds no sequences.
func (q *RequestQueue) Empty() bool {
	return len(q.seqs) == 0
}

// Sequences returns a copy of the queued sequences in ascending order.
func (q *RequestQueue) Sequences() []uint64 {
	out := make([]uint64, len(q.seqs))
	copy(out, q.seqs)
	return out
}

// Remove drops sequences from the queue according to mode, preserving
// sort order, and returns how many were removed.
func (q *RequestQueue) Remove(seq uint64, mode RemovalMode) int {
	switch mode {
	case Exact:
		i := sort.Search(len(q.seqs), func(i int) bool { return q.seqs[i] >= seq })
		if i < len(q.seqs) && q.seqs[i] == seq {
			q.seqs = append(q.seqs[:i:i], q.seqs[i+1:]...)
			return 1
		}
		return 0
	case LowerBound:
		i := sort.Search(len(q.seqs), func(i int) bool { return q.seqs[i] > seq })
		removed := i
		q.seqs = append([]uint64(nil), q.seqs[i:]...)
		return removed
	case UpperBound:
		i := sort.Search(len(q.seqs), func(i int) bool { return q.seqs[i] >= seq })
		removed := len(q.seqs) - i
		q.seqs = q.seqs[:i:i]
		return removed
	default:
		return 0
	}
}
