package hashgraph

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru"
	cm "github.com/mosaicnetworks/gossipledger/src/common"
)

// InmemStore implements the Store interface with in-memory caches. Older
// events are evicted when the caches are full, so it cannot replay a long
// history; BadgerStore can.
type InmemStore struct {
	cacheSize      int
	eventCache     *lru.Cache               //hash => Event
	topoCache      *cm.RollingIndex[string] //topological index => hash
	consensusCache *cm.RollingIndex[string] //consensus index => hash
}

// NewInmemStore creates an InmemStore where all caches are limited to
// cacheSize items
func NewInmemStore(cacheSize int) *InmemStore {
	eventCache, _ := lru.New(cacheSize)

	return &InmemStore{
		cacheSize:      cacheSize,
		eventCache:     eventCache,
		topoCache:      cm.NewRollingIndex[string]("TopologicalEvents", cacheSize),
		consensusCache: cm.NewRollingIndex[string]("ConsensusEvents", cacheSize),
	}
}

// CacheSize implements the Store interface
func (s *InmemStore) CacheSize() int {
	return s.cacheSize
}

// GetEvent implements the Store interface
func (s *InmemStore) GetEvent(hash string) (*Event, error) {
	res, ok := s.eventCache.Get(hash)
	if !ok {
		return nil, cm.NewStoreErr("EventCache", cm.KeyNotFound, hash)
	}

	return res.(*Event), nil
}

// SetEvent implements the Store interface
func (s *InmemStore) SetEvent(event *Event) error {
	hash := event.Hex()

	if event.topologicalIndex < 0 {
		event.topologicalIndex = s.topoCache.LastIndex() + 1
	}

	if event.topologicalIndex > s.topoCache.LastIndex() {
		if err := s.topoCache.Set(hash, event.topologicalIndex); err != nil {
			return err
		}
	}

	s.eventCache.Add(hash, event)

	return nil
}

// TopologicalEvents implements the Store interface. It fails with TooLate once
// the first events have been evicted.
func (s *InmemStore) TopologicalEvents() ([]*Event, error) {
	hashes, err := s.topoCache.Since(-1)
	if err != nil {
		return nil, err
	}

	res := make([]*Event, 0, len(hashes))
	for _, h := range hashes {
		ev, err := s.GetEvent(h)
		if err != nil {
			return nil, cm.NewStoreErr("EventCache", cm.TooLate, h)
		}
		res = append(res, ev)
	}

	return res, nil
}

// AddConsensusEvent implements the Store interface
func (s *InmemStore) AddConsensusEvent(event *Event) error {
	if event.index == nil {
		return cm.NewStoreErr("ConsensusCache", cm.KeyNotFound, event.Hex())
	}
	return s.consensusCache.Set(event.Hex(), *event.index)
}

// GetConsensusEvent implements the Store interface
func (s *InmemStore) GetConsensusEvent(index int) (*Event, error) {
	hash, err := s.consensusCache.Get(index)
	if err != nil {
		return nil, err
	}

	ev, err := s.GetEvent(hash)
	if err != nil {
		return nil, cm.NewStoreErr("ConsensusCache", cm.TooLate, strconv.Itoa(index))
	}

	return ev, nil
}

// ConsensusEventsCount implements the Store interface
func (s *InmemStore) ConsensusEventsCount() int {
	return s.consensusCache.LastIndex() + 1
}

// Close implements the Store interface
func (s *InmemStore) Close() error {
	return nil
}

// StorePath implements the Store interface
func (s *InmemStore) StorePath() string {
	return ""
}
