package poolsync

import "time"

// Window, retry and timer constants, recovered from
// original_source/csnode/include/csnode/poolsynchronizer.hpp.
const (
	// BlocksToSync is the maximum number of sequences the synchronizer
	// keeps outstanding at once.
	BlocksToSync = 16
	// WarnsBeforeRefill is how many rounds a requested sequence may age
	// past its issuing round before it is reassigned to another
	// neighbour.
	WarnsBeforeRefill = 8
	// MaxSyncAttempts bounds total reassignments of a single sequence
	// before it is dropped and re-considered on the next window refill.
	MaxSyncAttempts = 8
	// kWaitTimeMs is the base retry tick, matching the rendezvous
	// primitive's own base wait.
	kWaitTimeMs = 30 * time.Millisecond
	// TimerMultiplier scales kWaitTimeMs into the synchronizer's own
	// timeout-check interval.
	TimerMultiplier = 10
	// DefaultTimerInterval is the synchronizer's periodic
	// timeout-and-retry tick: kWaitTimeMs * TimerMultiplier.
	DefaultTimerInterval = kWaitTimeMs * TimerMultiplier
)
