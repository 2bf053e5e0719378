package hashgraph

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/gossipledger/src/common"
	"github.com/sirupsen/logrus"
)

const (
	topoPrefix      = "topo"
	consensusPrefix = "cons"
	eventPrefix     = "event"
)

// BadgerStore persists events and the consensus order in a Badger database,
// with an InmemStore in front of it as a cache.
type BadgerStore struct {
	inmemStore *InmemStore
	db         *badger.DB
	path       string

	topoCount      int
	consensusCount int
}

// NewBadgerStore opens the database at path, creating it if necessary. The
// counters of an existing database are restored so that new events and
// consensus events are appended after the persisted ones.
func NewBadgerStore(cacheSize int, path string, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		opts = opts.WithLogger(logger.WithField("prefix", "badger"))
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		inmemStore: NewInmemStore(cacheSize),
		db:         handle,
		path:       path,
	}

	if store.topoCount, err = store.dbCount(topoPrefix); err != nil {
		handle.Close()
		return nil, err
	}

	if store.consensusCount, err = store.dbCount(consensusPrefix); err != nil {
		handle.Close()
		return nil, err
	}

	return store, nil
}

/*******************************************************************************
Keys
*******************************************************************************/

func topologicalEventKey(index int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", topoPrefix, index))
}

func consensusEventKey(index int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", consensusPrefix, index))
}

func eventKey(hash string) []byte {
	return []byte(fmt.Sprintf("%s_%s", eventPrefix, hash))
}

/*******************************************************************************
Implement the Store interface
*******************************************************************************/

// CacheSize implements the Store interface
func (s *BadgerStore) CacheSize() int {
	return s.inmemStore.CacheSize()
}

// GetEvent implements the Store interface. It tries the cache first.
func (s *BadgerStore) GetEvent(hash string) (*Event, error) {
	event, err := s.inmemStore.GetEvent(hash)
	if err == nil {
		return event, nil
	}

	event, err = s.dbGetEvent(hash)
	return event, mapError(err, "Event", hash)
}

// SetEvent implements the Store interface
func (s *BadgerStore) SetEvent(event *Event) error {
	if event.topologicalIndex < 0 {
		event.topologicalIndex = s.topoCount
	}

	if err := s.inmemStore.SetEvent(event); err != nil && !cm.IsStore(err, cm.SkippedIndex) {
		return err
	}

	return s.dbSetEvent(event)
}

// TopologicalEvents implements the Store interface. It reads from the
// database, which is never truncated.
func (s *BadgerStore) TopologicalEvents() ([]*Event, error) {
	return s.dbTopologicalEvents()
}

// AddConsensusEvent implements the Store interface
func (s *BadgerStore) AddConsensusEvent(event *Event) error {
	if event.index == nil {
		return cm.NewStoreErr("ConsensusEvent", cm.KeyNotFound, event.Hex())
	}

	if err := s.inmemStore.AddConsensusEvent(event); err != nil && !cm.IsStore(err, cm.SkippedIndex) {
		return err
	}

	if err := s.dbSetConsensusEvent(*event.index, event.Hex()); err != nil {
		return err
	}

	if *event.index >= s.consensusCount {
		s.consensusCount = *event.index + 1
	}

	return nil
}

// GetConsensusEvent implements the Store interface
func (s *BadgerStore) GetConsensusEvent(index int) (*Event, error) {
	if ev, err := s.inmemStore.GetConsensusEvent(index); err == nil {
		return ev, nil
	}

	hash, err := s.dbGetConsensusHash(index)
	if err != nil {
		return nil, mapError(err, "ConsensusEvent", strconv.Itoa(index))
	}

	return s.GetEvent(hash)
}

// ConsensusEventsCount implements the Store interface
func (s *BadgerStore) ConsensusEventsCount() int {
	return s.consensusCount
}

// Close implements the Store interface
func (s *BadgerStore) Close() error {
	if err := s.inmemStore.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

// StorePath implements the Store interface
func (s *BadgerStore) StorePath() string {
	return s.path
}

/*******************************************************************************
DB Methods
*******************************************************************************/

func (s *BadgerStore) dbGetEvent(hash string) (*Event, error) {
	var eventBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(hash))
		if err != nil {
			return err
		}
		eventBytes, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, err
	}

	event := new(Event)
	if err := event.UnmarshalDB(eventBytes); err != nil {
		return nil, err
	}

	return event, nil
}

func (s *BadgerStore) dbSetEvent(event *Event) error {
	hash := event.Hex()

	val, err := event.MarshalDB()
	if err != nil {
		return err
	}

	isNew := false

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(eventKey(hash))
		if err != nil && !isDBKeyNotFound(err) {
			return err
		}
		isNew = err != nil

		if err := txn.Set(eventKey(hash), val); err != nil {
			return err
		}

		if isNew {
			return txn.Set(topologicalEventKey(event.topologicalIndex), []byte(hash))
		}

		return nil
	})

	if err == nil && isNew && event.topologicalIndex >= s.topoCount {
		s.topoCount = event.topologicalIndex + 1
	}

	return err
}

func (s *BadgerStore) dbTopologicalEvents() ([]*Event, error) {
	res := []*Event{}

	err := s.db.View(func(txn *badger.Txn) error {
		for t := 0; ; t++ {
			item, err := txn.Get(topologicalEventKey(t))
			if isDBKeyNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}

			hash, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			eventItem, err := txn.Get(eventKey(string(hash)))
			if err != nil {
				return err
			}

			eventBytes, err := eventItem.ValueCopy(nil)
			if err != nil {
				return err
			}

			event := new(Event)
			if err := event.UnmarshalDB(eventBytes); err != nil {
				return err
			}

			res = append(res, event)
		}
	})

	return res, err
}

func (s *BadgerStore) dbSetConsensusEvent(index int, hash string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(consensusEventKey(index), []byte(hash))
	})
}

func (s *BadgerStore) dbGetConsensusHash(index int) (string, error) {
	var hash []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(consensusEventKey(index))
		if err != nil {
			return err
		}
		hash, err = item.ValueCopy(nil)
		return err
	})
	return string(hash), err
}

// dbCount counts the keys with the given prefix
func (s *BadgerStore) dbCount(prefix string) (int, error) {
	count := 0
	p := []byte(prefix + "_")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}

func isDBKeyNotFound(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}

func mapError(err error, name, key string) error {
	if err != nil && isDBKeyNotFound(err) {
		return cm.NewStoreErr(name, cm.KeyNotFound, key)
	}
	return err
}
