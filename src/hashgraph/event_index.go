package hashgraph

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// EventIndex maps content hashes to Events, remembers the order in which they
// were inserted, and holds the per-round bookkeeping computed by the consensus
// stages. Because an Event is only accepted once its parents are present, the
// insertion order is a topological order of the DAG, and ancestry relations
// computed for an indexed event never change afterwards. This is what makes the
// ancestry caches safe.
type EventIndex struct {
	events map[string]*Event
	order  []string

	rounds      map[int]*RoundInfo
	lastRound   int
	decidedUpTo int //every round <= decidedUpTo has all its witnesses decided

	canSeeCache      *lru.Cache //Key => bool
	stronglySeeCache *lru.Cache //TreKey => bool
}

// NewEventIndex creates an empty index whose ancestry caches hold up to
// cacheSize results each.
func NewEventIndex(cacheSize int) *EventIndex {
	if cacheSize < 1 {
		cacheSize = 1
	}

	canSee, _ := lru.New(cacheSize)
	stronglySee, _ := lru.New(cacheSize)

	return &EventIndex{
		events:           make(map[string]*Event),
		rounds:           make(map[int]*RoundInfo),
		lastRound:        -1,
		decidedUpTo:      -1,
		canSeeCache:      canSee,
		stronglySeeCache: stronglySee,
	}
}

// Insert adds an event to the index and returns its hash. It fails if the
// hash is already indexed, or if the event is not genesis and one of its
// parents is missing.
func (idx *EventIndex) Insert(ev *Event) (string, error) {
	hash := ev.Hex()

	if _, ok := idx.events[hash]; ok {
		return hash, ErrDuplicateEvent
	}

	if !ev.IsGenesis() {
		if !idx.Contains(ev.SelfParent()) {
			return hash, fmt.Errorf("%w: self-parent %s", ErrMissingParent, ev.SelfParent())
		}
		if !idx.Contains(ev.OtherParent()) {
			return hash, fmt.Errorf("%w: other-parent %s", ErrMissingParent, ev.OtherParent())
		}
		if sp := idx.events[ev.SelfParent()]; sp.Creator() != ev.Creator() {
			return hash, ErrSelfParentCreator
		}
	}

	ev.topologicalIndex = len(idx.order)
	idx.events[hash] = ev
	idx.order = append(idx.order, hash)

	return hash, nil
}

// Get returns the event with the given hash
func (idx *EventIndex) Get(hash string) (*Event, bool) {
	ev, ok := idx.events[hash]
	return ev, ok
}

// Contains reports whether hash is indexed
func (idx *EventIndex) Contains(hash string) bool {
	_, ok := idx.events[hash]
	return ok
}

// Len returns the number of indexed events
func (idx *EventIndex) Len() int {
	return len(idx.order)
}

// Hashes returns the indexed hashes in insertion order
func (idx *EventIndex) Hashes() []string {
	res := make([]string, len(idx.order))
	copy(res, idx.order)
	return res
}

// Round returns the bookkeeping of round r, or nil if no event has been
// assigned to r
func (idx *EventIndex) Round(r int) *RoundInfo {
	return idx.rounds[r]
}

// LastRound returns the highest assigned round, or -1
func (idx *EventIndex) LastRound() int {
	return idx.lastRound
}

// DecidedUpTo returns the highest round r such that every round up to and
// including r has all its witnesses decided, or -1
func (idx *EventIndex) DecidedUpTo() int {
	return idx.decidedUpTo
}

// parents returns the hashes of the indexed parents, self-parent first
func (idx *EventIndex) parents(ev *Event) []string {
	res := make([]string, 0, 2)
	if sp := ev.SelfParent(); sp != "" {
		res = append(res, sp)
	}
	if op := ev.OtherParent(); op != "" {
		res = append(res, op)
	}
	return res
}
