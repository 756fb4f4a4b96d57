package consensus

import (
	"time"

	"github.com/csnode/corenode/scheduler"
)

// FlushInterval paces Normal's periodic transaction-pool flush.
const FlushInterval = 200 * time.Millisecond

// CountTransInRound caps the number of spam transactions the optional
// generator injects to each target wallet on each FlushInterval tick.
const CountTransInRound = 100

// Scheduler tags for Normal's periodic tasks. Distinct from poolsync's
// retryTag since a Context and its PoolSynchronizer share one
// RoundScheduler.
const (
	flushTag scheduler.Tag = 100
	spamTag  scheduler.Tag = 101
)
