package peers

import (
	"github.com/mosaicnetworks/gossipledger/src/common"
	"github.com/mosaicnetworks/gossipledger/src/crypto"
)

// PeerSet is the fixed list of participants read from peers.json. Its size
// is the n used in every super-majority computation.
type PeerSet struct {
	Peers    []*Peer          `json:"peers"`
	ByPubKey map[string]*Peer `json:"-"`
	ByID     map[uint32]*Peer `json:"-"`

	//cached values
	hash []byte
	hex  string
}

/* Constructors */

// NewPeerSet creates a new PeerSet from a list of Peers
func NewPeerSet(peers []*Peer) *PeerSet {
	peerSet := &PeerSet{
		ByPubKey: make(map[string]*Peer),
		ByID:     make(map[uint32]*Peer),
	}

	for _, peer := range peers {
		peerSet.ByPubKey[peer.PubKeyString()] = peer
		peerSet.ByID[peer.ID()] = peer
	}

	peerSet.Peers = peers

	return peerSet
}

/* ToSlice Methods */

// PubKeys returns the PeerSet's slice of public keys
func (peerSet *PeerSet) PubKeys() []string {
	res := []string{}

	for _, peer := range peerSet.Peers {
		res = append(res, peer.PubKeyString())
	}

	return res
}

/* Utilities */

// Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.ByPubKey)
}

// Hash uniquely identifies a PeerSet. It is computed by hashing (SHA256) their
// public keys together, one by one.
func (peerSet *PeerSet) Hash() ([]byte, error) {
	if len(peerSet.hash) == 0 {
		hash := []byte{}
		for _, p := range peerSet.Peers {
			hash = crypto.SimpleHashFromTwoHashes(hash, p.PubKeyBytes())
		}
		peerSet.hash = hash
	}
	return peerSet.hash, nil
}

// Hex is the hexadecimal representation of Hash
func (peerSet *PeerSet) Hex() string {
	if len(peerSet.hex) == 0 {
		hash, _ := peerSet.Hash()
		peerSet.hex = common.EncodeToString(hash)
	}
	return peerSet.hex
}
