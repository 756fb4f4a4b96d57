package node

import (
	"sync"
	"sync/atomic"
)

// State captures a Node's lifecycle. Consensus's own Syncing StateKind
// already covers catch-up; Node only needs to know whether it is
// currently running its background loops or torn down.
type State uint32

const (
	// Running is a Node's state from Run until Shutdown.
	Running State = iota
	// Shutdown is the terminal state; a Node never leaves it.
	Shutdown
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// goroutineLimit bounds the number of concurrent background loops a Node
// launches through goFunc: the control timer, the round driver and the
// scheduler's consumer, well under the limit. The transport's accept loop
// is started by Transport.Listen, not through goFunc.
const goroutineLimit = 20

// state tracks a Node's lifecycle and bounds the goroutines it launches,
// so a runaway retry path cannot fork unboundedly.
type state struct {
	state   State
	wg      sync.WaitGroup
	wgCount int32
}

func (s *state) getState() State {
	return State(atomic.LoadUint32((*uint32)(&s.state)))
}

func (s *state) setState(v State) {
	atomic.StoreUint32((*uint32)(&s.state), uint32(v))
}

// goFunc starts f on its own goroutine and tracks it in wg, dropping the
// call silently if goroutineLimit concurrent goroutines are already
// outstanding.
func (s *state) goFunc(f func()) {
	if atomic.LoadInt32(&s.wgCount) >= goroutineLimit {
		return
	}
	s.wg.Add(1)
	atomic.AddInt32(&s.wgCount, 1)
	go func() {
		defer s.wg.Done()
		defer atomic.AddInt32(&s.wgCount, -1)
		f()
	}()
}

func (s *state) waitRoutines() {
	s.wg.Wait()
}
