package hashgraph

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/mosaicnetworks/gossipledger/src/common"
	"github.com/mosaicnetworks/gossipledger/src/crypto"
	"github.com/mosaicnetworks/gossipledger/src/crypto/keys"
	uuid "github.com/satori/go.uuid"
	"github.com/ugorji/go/codec"
)

/*******************************************************************************
EventBody
*******************************************************************************/

// EventBody contains everything the creator of an Event signs: its identity,
// the hashes of its two parents, and an optional application payload. Parent
// hashes are empty for genesis events.
type EventBody struct {
	ID          string //process-unique identifier, not used by consensus
	CreatedAt   int64  //creator's wall-clock in Unix nanoseconds
	Creator     []byte //creator's public key
	SelfParent  string //hash of the creator's previous event
	OtherParent string //hash of the gossip peer's last event
	Data        []byte //optional payload
}

// Marshal returns the canonical JSON encoding of the body. Map keys and struct
// fields are written in a fixed order so that every peer computes the same
// bytes, and therefore the same hash, for the same body.
func (e *EventBody) Marshal() ([]byte, error) {
	var b bytes.Buffer

	jh := new(codec.JsonHandle)
	jh.Canonical = true

	enc := codec.NewEncoder(&b, jh)
	if err := enc.Encode(e); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal decodes a body produced by Marshal
func (e *EventBody) Unmarshal(data []byte) error {
	jh := new(codec.JsonHandle)
	dec := codec.NewDecoderBytes(data, jh)
	return dec.Decode(e)
}

// Hash returns the SHA256 hash of the canonical encoding. This is the digest
// signed by the creator.
func (e *EventBody) Hash() ([]byte, error) {
	b, err := e.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(b), nil
}

/*******************************************************************************
Event
*******************************************************************************/

// Event is a vertex of the hashgraph. Body and Signature are the only fields
// that travel on the wire and that contribute to the hash. The unexported
// fields are consensus annotations computed locally by the ConsensusEngine;
// they are monotonic: once set they never change.
type Event struct {
	Body      EventBody
	Signature string //creator's signature of the body hash

	hash []byte
	hex  string

	round         *int
	witness       bool
	famous        common.Trilean
	roundReceived *int
	timestamp     *int64
	consensus     bool
	index         *int

	// position in the EventIndex, used by stores to replay events
	topologicalIndex int
}

// NewEvent creates an unsigned Event. Pass empty parents for a genesis event.
func NewEvent(data []byte, selfParent, otherParent string, creator []byte) *Event {
	body := EventBody{
		ID:          uuid.Must(uuid.NewV4()).String(),
		CreatedAt:   time.Now().UnixNano(),
		Creator:     creator,
		SelfParent:  selfParent,
		OtherParent: otherParent,
		Data:        data,
	}

	return &Event{
		Body:             body,
		topologicalIndex: -1,
	}
}

// Sign signs the body hash with the private key. The signature is not part of
// the signed digest.
func (e *Event) Sign(privKey *ecdsa.PrivateKey) error {
	digest, err := e.Body.Hash()
	if err != nil {
		return err
	}

	sig, err := keys.SignDigest(privKey, digest)
	if err != nil {
		return err
	}

	e.Signature = sig
	e.hash = nil
	e.hex = ""

	return nil
}

// Verify checks the signature against the creator's public key. Malformed keys
// or signatures yield false with a nil error; only encoding failures return an
// error.
func (e *Event) Verify() (bool, error) {
	digest, err := e.Body.Hash()
	if err != nil {
		return false, err
	}

	return keys.VerifyDigest(e.Body.Creator, digest, e.Signature), nil
}

// Hash returns the content hash: SHA256 of the canonical body followed by the
// signature. Consensus annotations are excluded so the hash is stable through
// every consensus stage.
func (e *Event) Hash() ([]byte, error) {
	if len(e.hash) == 0 {
		b, err := e.Body.Marshal()
		if err != nil {
			return nil, err
		}
		e.hash = crypto.SimpleHashFromTwoHashes(b, []byte(e.Signature))
	}
	return e.hash, nil
}

// Hex returns the 0X-prefixed hex representation of the content hash. Parent
// references and index keys use this form.
func (e *Event) Hex() string {
	if e.hex == "" {
		hash, _ := e.Hash()
		e.hex = common.EncodeToString(hash)
	}
	return e.hex
}

// Creator returns the hex representation of the creator's public key
func (e *Event) Creator() string {
	return common.EncodeToString(e.Body.Creator)
}

// SelfParent returns the hash of the self-parent, or ""
func (e *Event) SelfParent() string {
	return e.Body.SelfParent
}

// OtherParent returns the hash of the other-parent, or ""
func (e *Event) OtherParent() string {
	return e.Body.OtherParent
}

// IsGenesis is true for events without parents
func (e *Event) IsGenesis() bool {
	return e.Body.SelfParent == "" && e.Body.OtherParent == ""
}

// Data returns the payload
func (e *Event) Data() []byte {
	return e.Body.Data
}

// Copy returns an Event with the same body and signature and no consensus
// annotations.
func (e *Event) Copy() *Event {
	return &Event{
		Body:             e.Body,
		Signature:        e.Signature,
		hash:             e.hash,
		hex:              e.hex,
		topologicalIndex: -1,
	}
}

func (e *Event) String() string {
	return fmt.Sprintf("%s (creator %.10s, round %v)", e.Hex(), e.Creator(), intString(e.round))
}

func intString(i *int) string {
	if i == nil {
		return "nil"
	}
	return fmt.Sprintf("%d", *i)
}

/*******************************************************************************
Consensus annotations
*******************************************************************************/

// GetRound returns the round number, or nil if it hasn't been assigned yet
func (e *Event) GetRound() *int {
	return e.round
}

// IsWitness is true if the event is the first of its creator in its round
func (e *Event) IsWitness() bool {
	return e.witness
}

// Famous returns the fame of a witness. It stays Undefined for non-witnesses
// and for witnesses whose fame is not decided yet.
func (e *Event) Famous() common.Trilean {
	return e.famous
}

// GetRoundReceived returns the round-received, or nil
func (e *Event) GetRoundReceived() *int {
	return e.roundReceived
}

// GetConsensusTimestamp returns the consensus timestamp in Unix nanoseconds,
// or nil
func (e *Event) GetConsensusTimestamp() *int64 {
	return e.timestamp
}

// IsConsensus is true once the event has a position in the total order
func (e *Event) IsConsensus() bool {
	return e.consensus
}

// GetIndex returns the position in the total order, or nil
func (e *Event) GetIndex() *int {
	return e.index
}

func (e *Event) setRound(r int, witness bool) {
	e.round = &r
	e.witness = witness
}

func (e *Event) setFame(famous bool) {
	e.famous = common.TrileanOf(famous)
}

func (e *Event) setRoundReceived(rr int, timestamp int64) {
	e.roundReceived = &rr
	e.timestamp = &timestamp
}

func (e *Event) setConsensus(index int) {
	e.index = &index
	e.consensus = true
}

// clearConsensus drops the annotations set by FindOrder and setConsensus so a
// later pass can receive the event again
func (e *Event) clearConsensus() {
	e.roundReceived = nil
	e.timestamp = nil
	e.index = nil
	e.consensus = false
}

/*******************************************************************************
Storage encoding
*******************************************************************************/

// eventWrapper is the representation of an Event in a Store. Unlike the wire
// format, it carries the consensus annotations.
type eventWrapper struct {
	Body             EventBody
	Signature        string
	Round            *int
	Witness          bool
	Famous           common.Trilean
	RoundReceived    *int
	Timestamp        *int64
	Consensus        bool
	Index            *int
	TopologicalIndex int
}

// MarshalDB encodes the Event with its consensus annotations
func (e *Event) MarshalDB() ([]byte, error) {
	w := eventWrapper{
		Body:             e.Body,
		Signature:        e.Signature,
		Round:            e.round,
		Witness:          e.witness,
		Famous:           e.famous,
		RoundReceived:    e.roundReceived,
		Timestamp:        e.timestamp,
		Consensus:        e.consensus,
		Index:            e.index,
		TopologicalIndex: e.topologicalIndex,
	}

	var b bytes.Buffer
	enc := codec.NewEncoder(&b, new(codec.JsonHandle))
	if err := enc.Encode(w); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// UnmarshalDB is the inverse of MarshalDB
func (e *Event) UnmarshalDB(data []byte) error {
	var w eventWrapper

	dec := codec.NewDecoderBytes(data, new(codec.JsonHandle))
	if err := dec.Decode(&w); err != nil {
		return err
	}

	*e = Event{
		Body:             w.Body,
		Signature:        w.Signature,
		round:            w.Round,
		witness:          w.Witness,
		famous:           w.Famous,
		roundReceived:    w.RoundReceived,
		timestamp:        w.Timestamp,
		consensus:        w.Consensus,
		index:            w.Index,
		topologicalIndex: w.TopologicalIndex,
	}

	return nil
}
