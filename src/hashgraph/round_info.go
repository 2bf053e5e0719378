package hashgraph

import (
	"math/big"
	"sort"

	"github.com/mosaicnetworks/gossipledger/src/common"
	"github.com/mosaicnetworks/gossipledger/src/crypto"
)

// RoundInfo records the events assigned to a round and the fame of the
// round's witnesses.
type RoundInfo struct {
	Events    []string                  //hashes in insertion order
	Witnesses map[string]common.Trilean //witness hash => fame

	prn *big.Int
}

// NewRoundInfo creates an empty RoundInfo
func NewRoundInfo() *RoundInfo {
	return &RoundInfo{
		Events:    []string{},
		Witnesses: make(map[string]common.Trilean),
	}
}

// AddEvent records an event of the round
func (r *RoundInfo) AddEvent(hash string, witness bool) {
	r.Events = append(r.Events, hash)
	if witness {
		r.Witnesses[hash] = common.Undefined
	}
}

// SetFame decides the fame of a witness
func (r *RoundInfo) SetFame(hash string, famous bool) {
	if _, ok := r.Witnesses[hash]; ok {
		r.Witnesses[hash] = common.TrileanOf(famous)
		r.prn = nil
	}
}

// Fame returns the fame of a witness. Non-witnesses are Undefined.
func (r *RoundInfo) Fame(hash string) common.Trilean {
	return r.Witnesses[hash]
}

// WitnessList returns the round's witnesses sorted by hash
func (r *RoundInfo) WitnessList() []string {
	res := make([]string, 0, len(r.Witnesses))
	for w := range r.Witnesses {
		res = append(res, w)
	}
	sort.Strings(res)
	return res
}

// FamousWitnesses returns the famous witnesses sorted by hash
func (r *RoundInfo) FamousWitnesses() []string {
	res := []string{}
	for w, f := range r.Witnesses {
		if f == common.True {
			res = append(res, w)
		}
	}
	sort.Strings(res)
	return res
}

// WitnessesDecided is true when the round has witnesses and all of them have a
// decided fame
func (r *RoundInfo) WitnessesDecided() bool {
	if len(r.Witnesses) == 0 {
		return false
	}
	for _, f := range r.Witnesses {
		if !f.Decided() {
			return false
		}
	}
	return true
}

// PseudoRandomNumber XORs the hashes of the famous witnesses. No single
// participant controls it, which makes it suitable to whiten signatures when
// breaking ordering ties among events received in this round.
func (r *RoundInfo) PseudoRandomNumber() *big.Int {
	if r.prn != nil {
		return r.prn
	}

	res := new(big.Int)
	for _, w := range r.FamousWitnesses() {
		b, err := common.DecodeFromString(w)
		if err != nil {
			b = crypto.SHA256([]byte(w))
		}
		res.Xor(res, new(big.Int).SetBytes(b))
	}

	r.prn = res

	return res
}
