package peers

import (
	"sync"
)

// Roster is the set of peers a node currently gossips with, including itself.
// Unlike a PeerSet, it changes at runtime: unknown peers that contact us are
// added, and unreachable peers are removed unless they are seeds. It is safe
// for concurrent use.
type Roster struct {
	sync.RWMutex

	self     *Peer
	sorted   []*Peer
	byPubKey map[string]*Peer
}

// NewRoster creates a Roster containing self and the given peers. Every peer
// in the initial list is a seed.
func NewRoster(self *Peer, seeds []*Peer) *Roster {
	r := &Roster{
		self:     self,
		byPubKey: make(map[string]*Peer),
	}

	r.addRaw(self)

	for _, p := range seeds {
		p.Seed = true
		r.addRaw(p)
	}

	return r
}

func (r *Roster) addRaw(peer *Peer) bool {
	key := peer.PubKeyString()
	if _, ok := r.byPubKey[key]; ok {
		return false
	}

	r.byPubKey[key] = peer
	r.sorted = append(r.sorted, peer)

	return true
}

// Self returns the local peer
func (r *Roster) Self() *Peer {
	return r.self
}

// Add inserts a peer unless one with the same public key is already known. It
// returns true if the peer was added.
func (r *Roster) Add(peer *Peer) bool {
	r.Lock()
	defer r.Unlock()

	return r.addRaw(peer)
}

// Remove drops the peer with the given public key. Seeds and self are never
// removed. It returns true if a peer was removed.
func (r *Roster) Remove(pubKey string) bool {
	r.Lock()
	defer r.Unlock()

	peer, ok := r.byPubKey[pubKey]
	if !ok || peer.Seed || peer == r.self {
		return false
	}

	delete(r.byPubKey, pubKey)

	kept := make([]*Peer, 0, len(r.sorted)-1)
	for _, p := range r.sorted {
		if p != peer {
			kept = append(kept, p)
		}
	}
	r.sorted = kept

	return true
}

// Get returns the peer with the given public key
func (r *Roster) Get(pubKey string) (*Peer, bool) {
	r.RLock()
	defer r.RUnlock()

	p, ok := r.byPubKey[pubKey]
	return p, ok
}

// Peers returns all the peers, self included, in the order they were added
func (r *Roster) Peers() []*Peer {
	r.RLock()
	defer r.RUnlock()

	res := make([]*Peer, len(r.sorted))
	copy(res, r.sorted)
	return res
}

// Selectable returns the peers we can gossip with: everyone except self
func (r *Roster) Selectable() []*Peer {
	r.RLock()
	defer r.RUnlock()

	res := make([]*Peer, 0, len(r.sorted))
	for _, p := range r.sorted {
		if p != r.self {
			res = append(res, p)
		}
	}
	return res
}

// Len returns the number of peers, self included
func (r *Roster) Len() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.sorted)
}
