package ledger

import (
	"sort"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	cm "github.com/mosaicnetworks/gossipledger/src/common"
)

// InmemStore keeps every account in memory and the most recent receipts in an
// LRU cache.
type InmemStore struct {
	sync.RWMutex

	accounts     map[string]Account
	transactions map[string]int //tx ID => entry index
	receiptCache *lru.Cache      //index => Receipt
	lastApplied  int
}

// NewInmemStore creates an InmemStore holding at most cacheSize receipts
func NewInmemStore(cacheSize int) *InmemStore {
	receiptCache, _ := lru.New(cacheSize)

	return &InmemStore{
		accounts:     make(map[string]Account),
		transactions: make(map[string]int),
		receiptCache: receiptCache,
		lastApplied:  -1,
	}
}

// GetAccount implements the Store interface
func (s *InmemStore) GetAccount(address string) (Account, error) {
	s.RLock()
	defer s.RUnlock()

	acc, ok := s.accounts[address]
	if !ok {
		return Account{}, cm.NewStoreErr("Account", cm.KeyNotFound, address)
	}
	return acc, nil
}

// SetAccount implements the Store interface
func (s *InmemStore) SetAccount(account Account) error {
	s.Lock()
	defer s.Unlock()

	s.accounts[account.Address] = account
	return nil
}

// Accounts implements the Store interface
func (s *InmemStore) Accounts() ([]Account, error) {
	s.RLock()
	defer s.RUnlock()

	res := make([]Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		res = append(res, acc)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Address < res[j].Address
	})

	return res, nil
}

// AddReceipt implements the Store interface
func (s *InmemStore) AddReceipt(receipt Receipt) error {
	s.receiptCache.Add(receipt.Index, receipt)
	return nil
}

// GetReceipt implements the Store interface
func (s *InmemStore) GetReceipt(index int) (Receipt, error) {
	res, ok := s.receiptCache.Get(index)
	if !ok {
		return Receipt{}, cm.NewStoreErr("Receipt", cm.KeyNotFound, strconv.Itoa(index))
	}
	return res.(Receipt), nil
}

// GetTransaction implements the Store interface
func (s *InmemStore) GetTransaction(id string) (int, error) {
	s.RLock()
	defer s.RUnlock()

	index, ok := s.transactions[id]
	if !ok {
		return -1, cm.NewStoreErr("Transaction", cm.KeyNotFound, id)
	}
	return index, nil
}

// AddTransaction implements the Store interface
func (s *InmemStore) AddTransaction(id string, index int) error {
	s.Lock()
	defer s.Unlock()

	s.transactions[id] = index
	return nil
}

// LastApplied implements the Store interface
func (s *InmemStore) LastApplied() int {
	s.RLock()
	defer s.RUnlock()

	return s.lastApplied
}

// SetLastApplied implements the Store interface
func (s *InmemStore) SetLastApplied(index int) error {
	s.Lock()
	defer s.Unlock()

	s.lastApplied = index
	return nil
}

// Close implements the Store interface
func (s *InmemStore) Close() error {
	return nil
}
