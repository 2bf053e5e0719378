package hashgraph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// ConsensusEngine runs the consensus stages over the events it is fed:
// DivideRounds, DecideFame, FindOrder, then sorts the newly received events
// and gives them their index in the total order. Events that have not reached
// consensus are carried from one pass to the next in an UndecidedSet. All
// events stay in the index because later events keep referring to them in
// ancestry queries.
type ConsensusEngine struct {
	n         int
	index     *EventIndex
	undecided *UndecidedSet
	store     Store

	consensusCount     int
	lastConsensusRound *int

	mu     sync.Mutex
	logger *logrus.Entry
}

// NewConsensusEngine creates an engine for n participants. It fails if n is
// not positive.
func NewConsensusEngine(n int, store Store, logger *logrus.Entry) (*ConsensusEngine, error) {
	if n <= 0 {
		return nil, ErrInvalidMembership
	}

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &ConsensusEngine{
		n:         n,
		index:     NewEventIndex(store.CacheSize()),
		undecided: NewUndecidedSet(),
		store:     store,
		logger:    logger,
	}, nil
}

// Insert verifies an event and adds a copy of it to the index. The caller
// keeps ownership of ev; consensus annotations are only written to the copy.
// Re-inserting a known event is a no-op.
func (c *ConsensusEngine) Insert(ev *Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.insert(ev.Copy(), true)
}

func (c *ConsensusEngine) insert(ev *Event, persist bool) error {
	if c.index.Contains(ev.Hex()) {
		return nil
	}

	ok, err := ev.Verify()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: event %s", ErrInvalidSignature, ev.Hex())
	}

	hash, err := c.index.Insert(ev)
	if err != nil {
		return err
	}

	if persist {
		if err := c.store.SetEvent(ev); err != nil {
			return err
		}
	}

	c.undecided.Add(hash)

	return nil
}

// Run executes one consensus pass and returns the events that reached
// consensus during this pass, in total order. Events ordered by earlier passes
// are never reordered: every returned event comes after them. When the store
// fails, Run returns the events it managed to persist along with the error.
func (c *ConsensusEngine) Run() ([]*Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.run()
}

func (c *ConsensusEngine) run() ([]*Event, error) {
	if err := DivideRounds(c.index, c.n); err != nil {
		return nil, err
	}

	DecideFame(c.index, c.n)

	received := FindOrder(c.index, c.undecided.Hashes())
	if len(received) == 0 {
		return nil, nil
	}

	events := make([]*Event, len(received))
	for i, h := range received {
		events[i], _ = c.index.Get(h)
	}

	sort.Sort(NewConsensusSorter(c.index, events))

	// An event counts as ordered once it is persisted. If the store fails, the
	// failed event and the ones after it go back to being undecided, and the
	// next pass receives them again with the same annotations.
	var err error
	committed := 0
	for _, ev := range events {
		ev.setConsensus(c.consensusCount)

		if err = c.persist(ev); err != nil {
			break
		}

		c.consensusCount++
		committed++
	}

	for _, ev := range events[committed:] {
		ev.clearConsensus()
	}

	events = events[:committed]
	if len(events) == 0 {
		return nil, err
	}

	done := make([]string, len(events))
	for i, ev := range events {
		done[i] = ev.Hex()
	}
	c.undecided.Remove(done)

	lastRR := *events[len(events)-1].roundReceived
	c.lastConsensusRound = &lastRR

	c.logger.WithFields(logrus.Fields{
		"consensus_events":     len(events),
		"consensus_count":      c.consensusCount,
		"last_consensus_round": lastRR,
		"last_round":           c.index.LastRound(),
		"undecided":            c.undecided.Len(),
	}).Debug("Run")

	return events, err
}

func (c *ConsensusEngine) persist(ev *Event) error {
	if err := c.store.SetEvent(ev); err != nil {
		return err
	}
	return c.store.AddConsensusEvent(ev)
}

// Bootstrap replays the events persisted in the store, in the order they were
// first inserted, and runs a consensus pass over them. The returned events are
// the ones already known to the store; consumers are expected to skip indexes
// they have already processed.
func (c *ConsensusEngine) Bootstrap() ([]*Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	events, err := c.store.TopologicalEvents()
	if err != nil {
		return nil, err
	}

	for _, ev := range events {
		if err := c.insert(ev.Copy(), false); err != nil && !errors.Is(err, ErrDuplicateEvent) {
			return nil, fmt.Errorf("bootstrapping event %s: %w", ev.Hex(), err)
		}
	}

	c.logger.WithField("events", len(events)).Debug("Bootstrap")

	return c.run()
}

// Event returns the engine's copy of an event, with its consensus annotations
func (c *ConsensusEngine) Event(hash string) (*Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.index.Get(hash)
}

// ConsensusEvent returns the event at a given index in the total order
func (c *ConsensusEngine) ConsensusEvent(index int) (*Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.GetConsensusEvent(index)
}

// ConsensusCount returns the number of events that reached consensus
func (c *ConsensusEngine) ConsensusCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.consensusCount
}

// UndecidedCount returns the number of events waiting for consensus
func (c *ConsensusEngine) UndecidedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.undecided.Len()
}

// LastRound returns the highest round assigned so far, or -1
func (c *ConsensusEngine) LastRound() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.index.LastRound()
}

// LastConsensusRound returns the round-received of the last consensus event,
// or nil
func (c *ConsensusEngine) LastConsensusRound() *int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastConsensusRound
}

// Len returns the number of indexed events
func (c *ConsensusEngine) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.index.Len()
}

// N returns the number of participants used in super-majority computations
func (c *ConsensusEngine) N() int {
	return c.n
}
