package hashgraph

// Store persists the events handled by a ConsensusEngine and the total order
// it produces.
type Store interface {
	// CacheSize returns the maximum number of items kept in caches
	CacheSize() int
	// GetEvent returns an event by hash
	GetEvent(hash string) (*Event, error)
	// SetEvent inserts a new event or updates the consensus annotations of a
	// known one. New events are recorded in topological order.
	SetEvent(event *Event) error
	// TopologicalEvents returns all the events, in the order they were first
	// set
	TopologicalEvents() ([]*Event, error)
	// AddConsensusEvent records an event at its index in the total order
	AddConsensusEvent(event *Event) error
	// GetConsensusEvent returns the event at a given index in the total order
	GetConsensusEvent(index int) (*Event, error)
	// ConsensusEventsCount returns the number of consensus events
	ConsensusEventsCount() int
	// Close closes the underlying database
	Close() error
	// StorePath returns the filepath of the underlying database
	StorePath() string
}
