package node

import (
	"sync"
	"sync/atomic"
)

// State captures the state of a node: Babbling or Shutdown
type State uint32

const (
	// Babbling is the state of a node that gossips and runs consensus
	Babbling State = iota
	// Shutdown is the state of a node that has been stopped
	Shutdown
)

// String ...
func (s State) String() string {
	switch s {
	case Babbling:
		return "Babbling"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// WGLIMIT is the maximum number of goroutines that can be launched through
// state.goFunc
const WGLIMIT = 20

type state struct {
	state   State
	wg      sync.WaitGroup
	wgCount int32
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// Start a goroutine and add it to waitgroup. It returns false, without
// starting anything, once WGLIMIT goroutines are running.
func (b *state) goFunc(f func()) bool {
	if atomic.LoadInt32(&b.wgCount) >= WGLIMIT {
		return false
	}

	b.wg.Add(1)
	atomic.AddInt32(&b.wgCount, 1)
	go func() {
		defer b.wg.Done()
		defer atomic.AddInt32(&b.wgCount, -1)
		f()
	}()

	return true
}

func (b *state) waitRoutines() {
	b.wg.Wait()
}
