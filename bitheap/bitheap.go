// Package bitheap implements RequestedSequences: a sparse set of unsigned
// integers represented densely as an anchor "greatest" value plus a bit
// vector of its W predecessors. It answers membership queries in O(1) and
// is used to track outstanding block requests without a map per peer.
package bitheap

import "math/bits"

// Width is the number of predecessor bits tracked below the anchor value.
// A push that lands more than Width below the current anchor falls outside
// the window and is silently dropped, matching the fixed-size bitset the
// design tracks per peer.
const Width = 64

// BitHeap is a sparse set of uint64 values in the window
// [greatest-Width, greatest]. The zero value is an empty BitHeap.
type BitHeap struct {
	greatest uint64
	bits     uint64
	isSet    bool
}

// New returns an empty BitHeap.
func New() *BitHeap {
	return &BitHeap{}
}

// Push records val in the set. If val is farther below the current anchor
// than Width, or already present, this is a no-op (other than possibly
// shifting the anchor forward).
func (h *BitHeap) Push(val uint64) {
	if !h.isSet {
		h.greatest = val
		h.isSet = true
		return
	}

	switch {
	case val > h.greatest:
		shift := val - h.greatest
		if shift >= Width {
			h.bits = 0
		} else {
			h.bits <<= shift
		}
		ind := shift - 1
		if ind < Width {
			h.bits |= 1 << ind
		}
		h.greatest = val
	case val < h.greatest:
		ind := h.greatest - val - 1
		if ind < Width {
			h.bits |= 1 << ind
		}
	}
}

// Empty reports whether no value has ever been pushed.
func (h *BitHeap) Empty() bool {
	return !h.isSet
}

// MinMaxRange returns the window [greatest-Width, greatest]. Values outside
// this window are never reported as contained, even if they were pushed
// before falling out of the window.
func (h *BitHeap) MinMaxRange() (min, max uint64) {
	return h.greatest - Width, h.greatest
}

// Contains reports whether val is a member of the set.
func (h *BitHeap) Contains(val uint64) bool {
	if !h.isSet || val > h.greatest {
		return false
	}
	if val == h.greatest {
		return true
	}
	ind := h.greatest - val - 1
	if ind >= Width {
		return false
	}
	return h.bits&(1<<ind) != 0
}

// Count returns the number of distinct values currently tracked.
func (h *BitHeap) Count() int {
	if h.Empty() {
		return 0
	}
	return 1 + bits.OnesCount64(h.bits)
}
