package peers

import (
	"github.com/mosaicnetworks/gossipledger/src/common"
)

// Peer is a participant of the network. PubKeyHex identifies it; NetAddr is
// the ip:port where it listens for sync requests. Seed peers are never
// removed from a Roster.
type Peer struct {
	NetAddr   string
	PubKeyHex string
	Moniker   string
	Seed      bool `json:",omitempty"`

	id uint32
}

// NewPeer is a factory method for creating a new Peer instance
func NewPeer(pubKeyHex, netAddr, moniker string) *Peer {
	peer := &Peer{
		PubKeyHex: pubKeyHex,
		NetAddr:   netAddr,
		Moniker:   moniker,
	}

	return peer
}

// ID returns an ID for the peer, calculating a hash if one is not available
func (p *Peer) ID() uint32 {
	if p.id == 0 {
		p.id = common.Hash32(p.PubKeyBytes())
	}
	return p.id
}

// PubKeyString returns the upper-case version of PubKeyHex. It is used for
// indexing in maps with string keys.
func (p *Peer) PubKeyString() string {
	return common.EncodeToString(p.PubKeyBytes())
}

// PubKeyBytes converts hex string representation of the public key and returns
// a byte array
func (p *Peer) PubKeyBytes() []byte {
	pubKeyBytes, _ := common.DecodeFromString(p.PubKeyHex)
	return pubKeyBytes
}
