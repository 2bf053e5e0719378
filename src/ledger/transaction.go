package ledger

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"time"

	"github.com/mosaicnetworks/gossipledger/src/common"
	"github.com/mosaicnetworks/gossipledger/src/crypto"
	"github.com/mosaicnetworks/gossipledger/src/crypto/keys"
	uuid "github.com/satori/go.uuid"
	"github.com/ugorji/go/codec"
)

// ErrInvalidAddress is returned for addresses that are not hex encoded public
// keys
var ErrInvalidAddress = errors.New("invalid address")

// TransactionBody is the signed part of a Transaction
type TransactionBody struct {
	ID        string
	From      string //sender's public key hex
	To        string //recipient's public key hex
	Amount    uint64
	CreatedAt int64
}

// Marshal returns the canonical JSON encoding of the body
func (b *TransactionBody) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	jh := new(codec.JsonHandle)
	jh.Canonical = true

	enc := codec.NewEncoder(&buf, jh)
	if err := enc.Encode(b); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Hash returns the SHA256 hash of the canonical encoding
func (b *TransactionBody) Hash() ([]byte, error) {
	data, err := b.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(data), nil
}

// Transaction is a transfer of Amount from From to To, signed by From
type Transaction struct {
	Body      TransactionBody
	Signature string
}

// NewTransaction creates an unsigned Transaction. Addresses are normalised to
// the upper-case 0X form.
func NewTransaction(from, to string, amount uint64) (*Transaction, error) {
	fromAddr, err := NormaliseAddress(from)
	if err != nil {
		return nil, err
	}

	toAddr, err := NormaliseAddress(to)
	if err != nil {
		return nil, err
	}

	return &Transaction{
		Body: TransactionBody{
			ID:        uuid.Must(uuid.NewV4()).String(),
			From:      fromAddr,
			To:        toAddr,
			Amount:    amount,
			CreatedAt: time.Now().UnixNano(),
		},
	}, nil
}

// Sign signs the body hash with the sender's private key
func (t *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	digest, err := t.Body.Hash()
	if err != nil {
		return err
	}

	sig, err := keys.SignDigest(privKey, digest)
	if err != nil {
		return err
	}

	t.Signature = sig

	return nil
}

// Verify checks the signature against the key in From
func (t *Transaction) Verify() (bool, error) {
	pub, err := common.DecodeFromString(t.Body.From)
	if err != nil {
		return false, nil
	}

	digest, err := t.Body.Hash()
	if err != nil {
		return false, err
	}

	return keys.VerifyDigest(pub, digest, t.Signature), nil
}

// Marshal encodes the transaction as an event payload
func (t *Transaction) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	jh := new(codec.JsonHandle)
	jh.Canonical = true

	enc := codec.NewEncoder(&buf, jh)
	if err := enc.Encode(t); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes a payload produced by Marshal
func (t *Transaction) Unmarshal(data []byte) error {
	dec := codec.NewDecoderBytes(data, new(codec.JsonHandle))
	return dec.Decode(t)
}

// NormaliseAddress checks that addr is a hex encoded secp256k1 public key and
// returns its upper-case 0X form
func NormaliseAddress(addr string) (string, error) {
	pub := keys.PublicKeyFromHex(addr)
	if pub == nil {
		return "", ErrInvalidAddress
	}
	return keys.PublicKeyHex(pub), nil
}
