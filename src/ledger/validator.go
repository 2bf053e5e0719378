package ledger

import (
	"errors"
	"fmt"

	"github.com/mosaicnetworks/gossipledger/src/hashgraph"
)

var (
	// ErrBadSignature is returned for transactions whose signature does not
	// verify against the sender's key
	ErrBadSignature = errors.New("bad transaction signature")
	// ErrWrongSender is returned when a transaction is carried by an event
	// created by someone other than its sender
	ErrWrongSender = errors.New("transaction sender is not the event creator")
	// ErrZeroAmount is returned for transfers of nothing
	ErrZeroAmount = errors.New("amount must be positive")
)

// PayloadValidator checks that event payloads are transactions signed by the
// event creator. Events without payload are accepted.
type PayloadValidator struct{}

// ValidatePayload implements the gossip.Validator interface
func (PayloadValidator) ValidatePayload(event *hashgraph.Event) error {
	if len(event.Data()) == 0 {
		return nil
	}
	_, err := decodeTransaction(event.Data(), event.Creator())
	return err
}

// decodeTransaction decodes a payload and checks it against the claimed
// sender
func decodeTransaction(payload []byte, sender string) (*Transaction, error) {
	var tx Transaction
	if err := tx.Unmarshal(payload); err != nil {
		return nil, fmt.Errorf("decoding transaction: %w", err)
	}

	ok, err := tx.Verify()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBadSignature
	}

	if tx.Body.From != sender {
		return nil, ErrWrongSender
	}

	if _, err := NormaliseAddress(tx.Body.To); err != nil {
		return nil, err
	}

	if tx.Body.Amount == 0 {
		return nil, ErrZeroAmount
	}

	return &tx, nil
}
