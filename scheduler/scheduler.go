package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// LaunchScheme selects whether a scheduled call fires once or repeats.
type LaunchScheme int

const (
	// Single fires the callback exactly once after the delay.
	Single LaunchScheme = iota
	// Periodic fires the callback every delay until cancelled.
	Periodic
)

func (s LaunchScheme) String() string {
	if s == Periodic {
		return "periodic"
	}
	return "single"
}

// Tag identifies a scheduled call so that it can be cancelled or
// deduplicated. NoTag is returned by Schedule when a call is rejected.
type Tag uint64

// NoTag is the zero value, returned by Schedule to signal rejection and
// never assigned to an accepted call.
const NoTag Tag = 0

// scheduledCall tracks one outstanding timer and the callback it will
// eventually hand to the consumer.
type scheduledCall struct {
	tag    Tag
	delay  time.Duration
	cb     func()
	cancel chan struct{}
	once   sync.Once

	mu      sync.Mutex
	forever bool
	remains int
}

// RoundScheduler is the single-threaded cooperative scheduler the
// consensus core runs on. Call Run on its own goroutine; every other method
// is safe to call from any goroutine.
type RoundScheduler struct {
	logger *logrus.Entry

	mu      sync.Mutex
	pending map[Tag]*scheduledCall
	nextTag uint64

	callCh     chan func()
	shutdownCh chan struct{}
	shutdown   sync.Once
	wg         sync.WaitGroup
}

// NewRoundScheduler creates a scheduler. Call Run to start consuming
// dispatched callbacks.
func NewRoundScheduler(logger *logrus.Entry) *RoundScheduler {
	return &RoundScheduler{
		logger:     logger,
		pending:    make(map[Tag]*scheduledCall),
		callCh:     make(chan func()),
		shutdownCh: make(chan struct{}),
	}
}

// Run is the scheduler's single consumer loop: it dequeues and invokes
// callbacks strictly in the order they were handed off, never running two
// callbacks concurrently. It returns once Shutdown is called.
func (s *RoundScheduler) Run() {
	for {
		select {
		case cb := <-s.callCh:
			cb()
		case <-s.shutdownCh:
			return
		}
	}
}

// Shutdown stops the consumer loop and every pending timer, then waits for
// their goroutines to exit. In-flight callbacks already handed to the
// consumer are not interrupted; Shutdown does not wait for Run to return.
func (s *RoundScheduler) Shutdown() {
	s.shutdown.Do(func() { close(s.shutdownCh) })
	s.wg.Wait()
}

// Schedule enqueues cb to run after delay according to scheme, returning a
// Tag that identifies it. If tag is NoTag, a fresh tag is allocated and the
// call is always accepted. If tag is non-zero and a Single call with that
// tag is already pending, the new call is rejected and Schedule returns
// NoTag without invoking cb. Scheduling over an existing Periodic call with
// the same tag cancels the old one first.
func (s *RoundScheduler) Schedule(delay time.Duration, scheme LaunchScheme, tag Tag, cb func()) Tag {
	s.mu.Lock()
	if tag == NoTag {
		tag = Tag(atomic.AddUint64(&s.nextTag, 1))
	} else if existing, ok := s.pending[tag]; ok {
		if existing.scheme() == Single {
			s.mu.Unlock()
			return NoTag
		}
		delete(s.pending, tag)
		s.mu.Unlock()
		existing.stop()
		s.mu.Lock()
	}

	sc := &scheduledCall{
		tag:    tag,
		delay:  delay,
		cb:     cb,
		cancel: make(chan struct{}),
	}
	if scheme == Periodic {
		sc.forever = true
	} else {
		sc.remains = 1
	}
	s.pending[tag] = sc
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(sc)

	return tag
}

// Cancel removes any pending future invocations tagged tag. An invocation
// already handed to the consumer still runs to completion.
func (s *RoundScheduler) Cancel(tag Tag) {
	s.mu.Lock()
	sc, ok := s.pending[tag]
	if ok {
		delete(s.pending, tag)
	}
	s.mu.Unlock()

	if ok {
		sc.stop()
	}
}

// CancelAfter arranges for the periodic call tagged tag to stop after n
// more firings. It only ever shrinks the remaining count: calling it with a
// larger n than already set, or on a task that is not scheduled, has no
// effect.
func (s *RoundScheduler) CancelAfter(tag Tag, n int) {
	s.mu.Lock()
	sc, ok := s.pending[tag]
	s.mu.Unlock()
	if !ok {
		return
	}

	sc.mu.Lock()
	if sc.forever {
		sc.forever = false
		sc.remains = n
	} else if n < sc.remains {
		sc.remains = n
	}
	sc.mu.Unlock()
}

// IsScheduled reports whether tag still names a pending call.
func (s *RoundScheduler) IsScheduled(tag Tag) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[tag]
	return ok
}

func (sc *scheduledCall) scheme() LaunchScheme {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.forever {
		return Periodic
	}
	return Single
}

func (sc *scheduledCall) stop() {
	sc.once.Do(func() { close(sc.cancel) })
}

// run owns one scheduledCall's timer. It fires at most once per delay,
// handing the callback to the shared consumer queue rather than invoking it
// directly, so the callback always runs on the single consumer goroutine.
func (s *RoundScheduler) run(sc *scheduledCall) {
	defer s.wg.Done()
	defer s.retire(sc)

	timer := time.NewTimer(sc.delay)
	defer timer.Stop()

	for {
		select {
		case <-sc.cancel:
			return
		case <-s.shutdownCh:
			return
		case <-timer.C:
			sc.mu.Lock()
			stop := false
			if !sc.forever {
				sc.remains--
				stop = sc.remains <= 0
			}
			sc.mu.Unlock()

			s.dispatch(sc.cb)

			if stop {
				return
			}
			timer.Reset(sc.delay)
		}
	}
}

func (s *RoundScheduler) dispatch(cb func()) {
	select {
	case s.callCh <- cb:
	case <-s.shutdownCh:
	}
}

func (s *RoundScheduler) retire(sc *scheduledCall) {
	s.mu.Lock()
	if s.pending[sc.tag] == sc {
		delete(s.pending, sc.tag)
	}
	s.mu.Unlock()
}
