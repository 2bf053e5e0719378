package node

import (
	"math/rand"
	"time"
)

type timerFactory func(time.Duration) <-chan time.Time

// ControlTimer is a resettable timer driving one of the node's loops. Each
// expiry sends one signal on tickCh; the timer stays idle until it is reset.
type ControlTimer struct {
	timerFactory timerFactory
	tickCh       chan struct{}      //sends a signal to listening process
	resetCh      chan time.Duration //receives instruction to reset the timer
	stopCh       chan struct{}      //receives instruction to stop the timer
	shutdownCh   chan struct{}      //receives instruction to exit Run loop
}

// NewControlTimer creates a ControlTimer that uses timerFactory to create the
// underlying timers
func NewControlTimer(timerFactory timerFactory) *ControlTimer {
	return &ControlTimer{
		timerFactory: timerFactory,
		tickCh:       make(chan struct{}),
		resetCh:      make(chan time.Duration),
		stopCh:       make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

// NewRandomControlTimer creates a ControlTimer whose expiries fall uniformly
// between d and 2d after a reset to d. Randomness spreads the gossip of
// different nodes over time.
func NewRandomControlTimer() *ControlTimer {
	randomTimeout := func(min time.Duration) <-chan time.Time {
		if min == 0 {
			return nil
		}
		extra := (time.Duration(rand.Int63()) % min)
		return time.After(min + extra)
	}
	return NewControlTimer(randomTimeout)
}

// NewFixedControlTimer creates a ControlTimer that expires exactly d after a
// reset to d
func NewFixedControlTimer() *ControlTimer {
	fixedTimeout := func(d time.Duration) <-chan time.Time {
		if d == 0 {
			return nil
		}
		return time.After(d)
	}
	return NewControlTimer(fixedTimeout)
}

// Run sets the timer to init and serves tick, reset, and stop instructions
// until Shutdown is called
func (c *ControlTimer) Run(init time.Duration) {
	timer := c.timerFactory(init)
	for {
		select {
		case <-timer:
			timer = nil
			select {
			case c.tickCh <- struct{}{}:
			case <-c.shutdownCh:
				return
			}
		case t := <-c.resetCh:
			timer = c.timerFactory(t)
		case <-c.stopCh:
			timer = nil
		case <-c.shutdownCh:
			return
		}
	}
}

// Reset arms the timer to expire after t. It returns false if the timer was
// shut down.
func (c *ControlTimer) Reset(t time.Duration) bool {
	select {
	case c.resetCh <- t:
		return true
	case <-c.shutdownCh:
		return false
	}
}

// Stop disarms the timer
func (c *ControlTimer) Stop() {
	select {
	case c.stopCh <- struct{}{}:
	case <-c.shutdownCh:
	}
}

// Shutdown makes Run return
func (c *ControlTimer) Shutdown() {
	close(c.shutdownCh)
}
