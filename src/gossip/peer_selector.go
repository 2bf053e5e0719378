package gossip

import (
	"math/rand"

	"github.com/mosaicnetworks/gossipledger/src/peers"
)

// PeerSelector defines an interface for Peer Selectors
type PeerSelector interface {
	Next() *peers.Peer
}

// RandomPeerSelector picks a peer uniformly at random among the roster's
// selectable peers. It reads the roster on every call, so peers added or
// removed at runtime are taken into account immediately.
type RandomPeerSelector struct {
	roster *peers.Roster
	rnd    *rand.Rand
}

// NewRandomPeerSelector is a factory method that returns a new instance of
// RandomPeerSelector. A nil source uses the global math/rand source.
func NewRandomPeerSelector(roster *peers.Roster, source rand.Source) *RandomPeerSelector {
	ps := &RandomPeerSelector{
		roster: roster,
	}
	if source != nil {
		ps.rnd = rand.New(source)
	}
	return ps
}

// Next returns the next peer, or nil if there is no one but us in the roster
func (ps *RandomPeerSelector) Next() *peers.Peer {
	selectablePeers := ps.roster.Selectable()

	if len(selectablePeers) == 0 {
		return nil
	}

	var i int
	if ps.rnd != nil {
		i = ps.rnd.Intn(len(selectablePeers))
	} else {
		i = rand.Intn(len(selectablePeers))
	}

	return selectablePeers[i]
}
