package node

import (
	"math/rand"
	"time"
)

type timerFactory func(time.Duration) <-chan time.Time

// ControlTimer drives Node's round driver: it fires tickCh once per
// period (jittered, so peers don't all rotate rounds in lockstep) until
// Shutdown.
type ControlTimer struct {
	timerFactory timerFactory
	tickCh       chan struct{}      // signals the round driver to rotate
	resetCh      chan time.Duration // instructs the timer to restart with a new period
	stopCh       chan struct{}      // pauses the timer without exiting Run
	shutdownCh   chan struct{}      // exits Run
	set          bool
}

// NewControlTimer builds a timer whose next deadline is computed by
// timerFactory each time it (re)arms.
func NewControlTimer(timerFactory timerFactory) *ControlTimer {
	return &ControlTimer{
		timerFactory: timerFactory,
		tickCh:       make(chan struct{}),
		resetCh:      make(chan time.Duration),
		stopCh:       make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

// NewRandomControlTimer builds a timer that adds up to min extra jitter
// to every period, so a neighbourhood of nodes started together does not
// rotate rounds in lockstep.
func NewRandomControlTimer() *ControlTimer {
	randomTimeout := func(min time.Duration) <-chan time.Time {
		if min == 0 {
			return nil
		}
		extra := time.Duration(rand.Int63()) % min
		return time.After(min + extra)
	}
	return NewControlTimer(randomTimeout)
}

// Run blocks, firing tickCh once per period until Shutdown is called.
func (c *ControlTimer) Run(init time.Duration) {
	setTimer := func(t time.Duration) <-chan time.Time {
		c.set = true
		return c.timerFactory(t)
	}

	timer := setTimer(init)
	for {
		select {
		case <-timer:
			c.tickCh <- struct{}{}
			c.set = false
			timer = setTimer(init)
		case t := <-c.resetCh:
			timer = setTimer(t)
		case <-c.stopCh:
			timer = nil
			c.set = false
		case <-c.shutdownCh:
			c.set = false
			return
		}
	}
}

// Shutdown stops Run permanently.
func (c *ControlTimer) Shutdown() {
	close(c.shutdownCh)
}
