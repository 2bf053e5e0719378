package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/gossipledger/src/common"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

const (
	accountPrefix     = "acct"
	receiptPrefix     = "rcpt"
	transactionPrefix = "tx"
)

var lastAppliedKey = []byte("meta_last_applied")

// BadgerStore persists the ledger in a Badger database. Its directory must be
// different from the one of the hashgraph store.
type BadgerStore struct {
	db          *badger.DB
	path        string
	lastApplied int
}

// NewBadgerStore opens the database at path, creating it if necessary, and
// restores the last applied index.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
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
		db:          handle,
		path:        path,
		lastApplied: -1,
	}

	if err := store.dbGet(lastAppliedKey, &store.lastApplied); err != nil && !isDBKeyNotFound(err) {
		handle.Close()
		return nil, err
	}

	return store, nil
}

func accountKey(address string) []byte {
	return []byte(fmt.Sprintf("%s_%s", accountPrefix, address))
}

func receiptKey(index int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", receiptPrefix, index))
}

func transactionKey(id string) []byte {
	return []byte(fmt.Sprintf("%s_%s", transactionPrefix, id))
}

/*******************************************************************************
Implement the Store interface
*******************************************************************************/

// GetAccount implements the Store interface
func (s *BadgerStore) GetAccount(address string) (Account, error) {
	var acc Account
	err := s.dbGet(accountKey(address), &acc)
	return acc, mapError(err, "Account", address)
}

// SetAccount implements the Store interface
func (s *BadgerStore) SetAccount(account Account) error {
	return s.dbSet(accountKey(account.Address), account)
}

// Accounts implements the Store interface. Keys are iterated in byte order,
// so the accounts come out sorted by address.
func (s *BadgerStore) Accounts() ([]Account, error) {
	res := []Account{}
	prefix := []byte(accountPrefix + "_")

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			var acc Account
			if err := decode(val, &acc); err != nil {
				return err
			}

			res = append(res, acc)
		}
		return nil
	})

	return res, err
}

// AddReceipt implements the Store interface
func (s *BadgerStore) AddReceipt(receipt Receipt) error {
	return s.dbSet(receiptKey(receipt.Index), receipt)
}

// GetReceipt implements the Store interface
func (s *BadgerStore) GetReceipt(index int) (Receipt, error) {
	var r Receipt
	err := s.dbGet(receiptKey(index), &r)
	return r, mapError(err, "Receipt", strconv.Itoa(index))
}

// GetTransaction implements the Store interface
func (s *BadgerStore) GetTransaction(id string) (int, error) {
	index := -1
	err := s.dbGet(transactionKey(id), &index)
	return index, mapError(err, "Transaction", id)
}

// AddTransaction implements the Store interface
func (s *BadgerStore) AddTransaction(id string, index int) error {
	return s.dbSet(transactionKey(id), index)
}

// LastApplied implements the Store interface
func (s *BadgerStore) LastApplied() int {
	return s.lastApplied
}

// SetLastApplied implements the Store interface
func (s *BadgerStore) SetLastApplied(index int) error {
	if err := s.dbSet(lastAppliedKey, index); err != nil {
		return err
	}
	s.lastApplied = index
	return nil
}

// Close implements the Store interface
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

/*******************************************************************************
DB Methods
*******************************************************************************/

func (s *BadgerStore) dbGet(key []byte, out interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		return decode(val, out)
	})
}

func (s *BadgerStore) dbSet(key []byte, in interface{}) error {
	val, err := encode(in)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

func encode(in interface{}) ([]byte, error) {
	var b bytes.Buffer
	enc := codec.NewEncoder(&b, new(codec.JsonHandle))
	if err := enc.Encode(in); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decode(data []byte, out interface{}) error {
	dec := codec.NewDecoderBytes(data, new(codec.JsonHandle))
	return dec.Decode(out)
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
