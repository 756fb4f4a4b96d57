package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/csnode/corenode/common"
)

func newTestScheduler(t *testing.T) *RoundScheduler {
	logger := common.NewTestLogger(t).WithField("prefix", "scheduler")
	s := NewRoundScheduler(logger)
	go s.Run()
	t.Cleanup(s.Shutdown)
	return s
}

func TestScheduleSingleFiresOnce(t *testing.T) {
	s := newTestScheduler(t)

	var calls int32
	done := make(chan struct{})
	s.Schedule(10*time.Millisecond, Single, NoTag, func() {
		atomic.AddInt32(&calls, 1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}

	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 call, got %d", got)
	}
}

func TestSchedulePeriodicFiresRepeatedlyUntilCancelled(t *testing.T) {
	s := newTestScheduler(t)

	var calls int32
	tag := s.Schedule(5*time.Millisecond, Periodic, NoTag, func() {
		atomic.AddInt32(&calls, 1)
	})

	time.Sleep(40 * time.Millisecond)
	s.Cancel(tag)

	n := atomic.LoadInt32(&calls)
	if n < 3 {
		t.Fatalf("expected several periodic firings, got %d", n)
	}

	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != n {
		t.Fatalf("expected no further firings after cancel, had %d now %d", n, got)
	}
}

func TestDuplicateSingleTagRejected(t *testing.T) {
	s := newTestScheduler(t)

	var calls int32
	tag := Tag(42)
	first := s.Schedule(50*time.Millisecond, Single, tag, func() {
		atomic.AddInt32(&calls, 1)
	})
	if first == NoTag {
		t.Fatalf("first schedule under a fresh tag should be accepted")
	}

	second := s.Schedule(50*time.Millisecond, Single, tag, func() {
		atomic.AddInt32(&calls, 1)
	})
	if second != NoTag {
		t.Fatalf("duplicate single-scheme tag should be rejected, got %v", second)
	}

	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected cb invoked exactly once, got %d", got)
	}
}

func TestCancelRemovesPendingInvocation(t *testing.T) {
	s := newTestScheduler(t)

	var calls int32
	tag := s.Schedule(40*time.Millisecond, Single, NoTag, func() {
		atomic.AddInt32(&calls, 1)
	})

	if !s.IsScheduled(tag) {
		t.Fatalf("expected tag to be scheduled before cancel")
	}
	s.Cancel(tag)
	if s.IsScheduled(tag) {
		t.Fatalf("expected tag to be gone after cancel")
	}

	time.Sleep(80 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("cancelled call should never fire, got %d calls", got)
	}
}

func TestCancelAfterStopsAfterNFirings(t *testing.T) {
	s := newTestScheduler(t)

	var calls int32
	tag := s.Schedule(5*time.Millisecond, Periodic, NoTag, func() {
		atomic.AddInt32(&calls, 1)
	})
	s.CancelAfter(tag, 2)

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected exactly 2 firings after CancelAfter(2), got %d", got)
	}
	if s.IsScheduled(tag) {
		t.Fatalf("task should be retired once its firing budget is exhausted")
	}
}

func TestCancelAfterNeverIncreasesRemainingCount(t *testing.T) {
	s := newTestScheduler(t)

	var calls int32
	tag := s.Schedule(5*time.Millisecond, Periodic, NoTag, func() {
		atomic.AddInt32(&calls, 1)
	})
	s.CancelAfter(tag, 1)
	s.CancelAfter(tag, 10) // must not widen the budget back out

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("CancelAfter should never increase the remaining count, got %d calls", got)
	}
}

func TestEveryScheduledCallbackFires(t *testing.T) {
	s := newTestScheduler(t)

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		s.Schedule(time.Duration(i)*time.Microsecond, Single, NoTag, func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all callbacks fired")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 5 {
		t.Fatalf("expected 5 callbacks, got %d", len(order))
	}
}

func TestReschedulingPeriodicTagCancelsThePrevious(t *testing.T) {
	s := newTestScheduler(t)

	var firstCalls, secondCalls int32
	tag := Tag(7)
	s.Schedule(5*time.Millisecond, Periodic, tag, func() {
		atomic.AddInt32(&firstCalls, 1)
	})
	time.Sleep(12 * time.Millisecond)

	s.Schedule(5*time.Millisecond, Periodic, tag, func() {
		atomic.AddInt32(&secondCalls, 1)
	})
	time.Sleep(30 * time.Millisecond)
	s.Cancel(tag)

	before := atomic.LoadInt32(&firstCalls)
	time.Sleep(20 * time.Millisecond)
	after := atomic.LoadInt32(&firstCalls)
	if before != after {
		t.Fatalf("original periodic call kept firing after being superseded: %d -> %d", before, after)
	}
	if atomic.LoadInt32(&secondCalls) == 0 {
		t.Fatalf("expected the replacement schedule to have fired")
	}
}
