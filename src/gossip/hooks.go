package gossip

import (
	"github.com/mosaicnetworks/gossipledger/src/hashgraph"
	"github.com/mosaicnetworks/gossipledger/src/peers"
)

// ErrorKind classifies failed syncs
type ErrorKind string

const (
	// ErrorResponse means the peer received the request and replied with an
	// error
	ErrorResponse ErrorKind = "error-response"
	// ErrorRequest means the request didn't get through: the peer could not be
	// dialed, the connection broke, or it timed out
	ErrorRequest ErrorKind = "error-request"
)

// Validator decides whether the payload of an incoming event is acceptable.
// The creator of the event is the claimed sender of the payload.
type Validator interface {
	ValidatePayload(event *hashgraph.Event) error
}

// PayloadSource supplies the payloads of new self-events. Pop returns false
// when there is nothing to send.
type PayloadSource interface {
	Pop() ([]byte, bool)
}

// Hooks are callbacks invoked by the Engine. They are optional; nil hooks are
// skipped. Hooks run on the goroutine that triggered them and must not call
// back into the Engine's Tick.
type Hooks struct {
	// OnTick is called at the beginning of every tick, before a peer is
	// selected
	OnTick func()
	// OnAccepted is called with every batch of newly accepted events,
	// including self-events, in the order they were accepted
	OnAccepted func(events []*hashgraph.Event)
	// OnError is called when a sync fails
	OnError func(kind ErrorKind, peer *peers.Peer, err error)
}
