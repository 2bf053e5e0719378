package common

import (
	"errors"
	"fmt"
)

// StoreErrType enumerates the errors returned by stores.
type StoreErrType uint32

const (
	// KeyNotFound means the requested item is not in the store
	KeyNotFound StoreErrType = iota
	// TooLate means the item was evicted from a rolling window
	TooLate
	// SkippedIndex means an item was inserted past the next index
	SkippedIndex
	// Empty means the store does not contain any items of that kind
	Empty
	// KeyAlreadyExists means an insert collided with an existing item
	KeyAlreadyExists
)

var storeErrMessages = map[StoreErrType]string{
	KeyNotFound:      "Not Found",
	TooLate:          "Too Late",
	SkippedIndex:     "Skipped Index",
	Empty:            "Empty",
	KeyAlreadyExists: "Key Already Exists",
}

// StoreErr is the error type returned by every store in this module. DataType
// names the kind of item (Event, Account, ...) and Key identifies it.
type StoreErr struct {
	DataType string
	ErrType  StoreErrType
	Key      string
}

// NewStoreErr ...
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		DataType: dataType,
		ErrType:  errType,
		Key:      key,
	}
}

// Error implements the error interface
func (e StoreErr) Error() string {
	return fmt.Sprintf("%s, %s, %s", e.DataType, e.Key, storeErrMessages[e.ErrType])
}

// IsStore checks that err, or an error it wraps, is a StoreErr of type t.
func IsStore(err error, t StoreErrType) bool {
	var storeErr StoreErr
	return errors.As(err, &storeErr) && storeErr.ErrType == t
}
