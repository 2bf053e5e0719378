package hashgraph

import (
	"math/big"

	"github.com/mosaicnetworks/gossipledger/src/crypto"
)

// ConsensusSorter sorts events by round-received, then consensus timestamp,
// then whitened signature, then hash. The whitened signature is the hash of
// the signature XORed with the pseudo-random number of the round-received;
// it depends only on data every node agrees on, so all nodes sort ties the
// same way.
type ConsensusSorter struct {
	a     []*Event
	idx   *EventIndex
	cache map[int]*big.Int
}

// NewConsensusSorter creates a sorter for events that have a round-received
func NewConsensusSorter(idx *EventIndex, events []*Event) ConsensusSorter {
	return ConsensusSorter{
		a:     events,
		idx:   idx,
		cache: make(map[int]*big.Int),
	}
}

func (b ConsensusSorter) Len() int      { return len(b.a) }
func (b ConsensusSorter) Swap(i, j int) { b.a[i], b.a[j] = b.a[j], b.a[i] }
func (b ConsensusSorter) Less(i, j int) bool {
	irr, jrr := *b.a[i].roundReceived, *b.a[j].roundReceived
	if irr != jrr {
		return irr < jrr
	}

	its, jts := *b.a[i].timestamp, *b.a[j].timestamp
	if its != jts {
		return its < jts
	}

	w := b.pseudoRandomNumber(irr)

	wsi := whiten(b.a[i].Signature, w)
	wsj := whiten(b.a[j].Signature, w)
	if c := wsi.Cmp(wsj); c != 0 {
		return c < 0
	}

	return b.a[i].Hex() < b.a[j].Hex()
}

func (b ConsensusSorter) pseudoRandomNumber(round int) *big.Int {
	if ps, ok := b.cache[round]; ok {
		return ps
	}

	ps := new(big.Int)
	if ri := b.idx.Round(round); ri != nil {
		ps = ri.PseudoRandomNumber()
	}

	b.cache[round] = ps

	return ps
}

func whiten(signature string, w *big.Int) *big.Int {
	s := new(big.Int).SetBytes(crypto.SHA256([]byte(signature)))
	return s.Xor(s, w)
}
