// Package scheduler implements RoundScheduler, the single-threaded
// cooperative scheduler that the consensus core runs on. A single consumer
// goroutine dequeues and invokes callbacks in FIFO order; producers may call
// Schedule from any goroutine. Each scheduled call carries an optional tag
// and a launch scheme (Single or Periodic), and can be cancelled by tag.
//
// This replaces the detached-thread-per-timer pattern of the original
// design (one OS thread sleeping per scheduled call, handing off to a
// shared calls queue) with a single timer goroutine per pending call that
// hands its callback to one shared consumer, so no callback ever runs on an
// unmanaged thread and handlers are never re-entrant with themselves.
package scheduler
