package net

import (
	"github.com/mosaicnetworks/gossipledger/src/hashgraph"
)

// SyncRequest is the push part of the push-pull gossip protocol. The requester
// sends every event it knows along with the last event it created, and
// identifies itself so that the responder can add it to its roster.
type SyncRequest struct {
	FromAddr   string
	FromPubKey string
	Moniker    string
	Items      []*hashgraph.Event
	LastItem   *hashgraph.Event
}

// SyncResponse is the pull part of the protocol. The responder answers with
// its own events and last created event, after ingesting the request.
type SyncResponse struct {
	Items    []*hashgraph.Event
	LastItem *hashgraph.Event
}
