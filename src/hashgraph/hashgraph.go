package hashgraph

import (
	"fmt"

	"github.com/mosaicnetworks/gossipledger/src/common"
)

// CoinRoundFreq is the frequency of coin rounds in fame voting: a vote that
// falls short of a super-majority in a round at distance d, with d a multiple
// of CoinRoundFreq, is replaced by a coin flip.
const CoinRoundFreq = 10

/*******************************************************************************
Rounds
*******************************************************************************/

// DivideRounds assigns a round and a witness flag to every indexed event that
// does not have one yet, in insertion order. An event with both parents starts
// in the highest round of its parents, and is promoted to the next round if it
// strongly sees a super-majority of that round's witnesses. A witness is the
// first event of its creator in a round; genesis events are always witnesses
// of round 0. Running it again over the same index changes nothing.
func DivideRounds(idx *EventIndex, n int) error {
	for _, hash := range idx.order {
		ev := idx.events[hash]
		if ev.round != nil {
			continue
		}

		round := 0
		var selfParent *Event

		if !ev.IsGenesis() {
			sp, spOK := idx.events[ev.SelfParent()]
			op, opOK := idx.events[ev.OtherParent()]
			if !spOK || !opOK || sp.round == nil || op.round == nil {
				return fmt.Errorf("parents of %s have no round", hash)
			}
			selfParent = sp

			round = *sp.round
			if *op.round > round {
				round = *op.round
			}
		}

		if ri := idx.rounds[round]; ri != nil {
			threshold := SuperMajority(n)
			count := 0
			for _, w := range ri.WitnessList() {
				if CanStronglySee(idx, hash, w, n) {
					count++
					if count >= threshold {
						break
					}
				}
			}
			if count >= threshold {
				round++
			}
		}

		witness := selfParent == nil || round > *selfParent.round

		ev.setRound(round, witness)

		ri, ok := idx.rounds[round]
		if !ok {
			ri = NewRoundInfo()
			idx.rounds[round] = ri
		}
		ri.AddEvent(hash, witness)

		// A witness showing up in a round whose fame has already been decided
		// could not be voted for; it is not famous.
		if witness && round <= idx.decidedUpTo {
			ri.SetFame(hash, false)
			ev.setFame(false)
		}

		if round > idx.lastRound {
			idx.lastRound = round
		}
	}

	return nil
}

/*******************************************************************************
Fame
*******************************************************************************/

// DecideFame runs the virtual voting on every undecided witness, by ascending
// round. Witnesses of round r+1 vote for a round-r witness x whether they can
// see it. Witnesses of later rounds adopt the majority vote of the previous
// round's witnesses they strongly see, and decide x's fame once that majority
// exceeds 2n/3. Every CoinRoundFreq rounds, weak majorities are replaced by a
// coin flip. Fame that cannot be decided yet stays Undefined.
func DecideFame(idx *EventIndex, n int) {
	votes := make(map[string]map[string]bool) //[y][x] => vote(y, x)

	setVote := func(y, x string, vote bool) {
		if votes[y] == nil {
			votes[y] = make(map[string]bool)
		}
		votes[y][x] = vote
	}

	for rx := idx.decidedUpTo + 1; rx <= idx.lastRound; rx++ {
		rxInfo := idx.rounds[rx]
		if rxInfo == nil {
			continue
		}

		for _, x := range rxInfo.WitnessList() {
			if rxInfo.Fame(x).Decided() {
				continue
			}

		VOTE_LOOP:
			for ry := rx + 1; ry <= idx.lastRound; ry++ {
				ryInfo := idx.rounds[ry]
				if ryInfo == nil {
					break
				}

				d := ry - rx

				for _, y := range ryInfo.WitnessList() {
					if d == 1 {
						setVote(y, x, CanSee(idx, y, x))
						continue
					}

					yays, nays := 0, 0
					if prev := idx.rounds[ry-1]; prev != nil {
						for _, w := range prev.WitnessList() {
							if !CanStronglySee(idx, y, w, n) {
								continue
							}
							if votes[w][x] {
								yays++
							} else {
								nays++
							}
						}
					}

					v := yays >= nays
					t := nays
					if v {
						t = yays
					}

					if d%CoinRoundFreq != 0 {
						if 3*t > 2*n {
							rxInfo.SetFame(x, v)
							idx.events[x].setFame(v)
							setVote(y, x, v)
							break VOTE_LOOP
						}
						setVote(y, x, v)
					} else {
						if 3*t > 2*n {
							setVote(y, x, v)
						} else {
							setVote(y, x, middleBit(y))
						}
					}
				}
			}
		}
	}

	for {
		ri := idx.rounds[idx.decidedUpTo+1]
		if ri == nil || !ri.WitnessesDecided() {
			break
		}
		idx.decidedUpTo++
	}
}

// middleBit is the coin used in coin rounds: the lowest bit of the middle byte
// of the voter's hash. It is a deterministic function of the voter, so every
// node flips the same coin for the same voter.
func middleBit(hash string) bool {
	b, err := common.DecodeFromString(hash)
	if err != nil || len(b) == 0 {
		return false
	}
	return b[len(b)/2]&1 == 1
}

/*******************************************************************************
Order
*******************************************************************************/

// FindOrder computes the round-received and consensus timestamp of the
// candidate events that have none yet, and returns the hashes of those it
// could settle. The round-received of x is the first round after round(x)
// whose famous witnesses all see x. Only rounds up to DecidedUpTo are
// considered, so an event is never received by a round that precedes the
// rounds of events settled in earlier calls. Rounds without famous witnesses
// are skipped.
//
// The consensus timestamp is the median of the creation times of the oldest
// self-ancestors of the famous witnesses that still see x.
func FindOrder(idx *EventIndex, candidates []string) []string {
	received := []string{}

	for _, hash := range candidates {
		ev, ok := idx.events[hash]
		if !ok || ev.round == nil || ev.roundReceived != nil {
			continue
		}

		for r := *ev.round + 1; r <= idx.decidedUpTo; r++ {
			ri := idx.rounds[r]
			if ri == nil || !ri.WitnessesDecided() {
				break
			}

			famous := ri.FamousWitnesses()
			if len(famous) == 0 {
				continue
			}

			seenByAll := true
			for _, w := range famous {
				if !CanSee(idx, w, hash) {
					seenByAll = false
					break
				}
			}
			if !seenByAll {
				continue
			}

			ev.setRoundReceived(r, consensusTimestamp(idx, hash, famous))
			received = append(received, hash)

			break
		}
	}

	return received
}

func consensusTimestamp(idx *EventIndex, x string, famous []string) int64 {
	times := make([]int64, 0, len(famous))

	for _, w := range famous {
		cur := idx.events[w]
		for cur.SelfParent() != "" {
			sp, ok := idx.events[cur.SelfParent()]
			if !ok || !CanSee(idx, cur.SelfParent(), x) {
				break
			}
			cur = sp
		}
		times = append(times, cur.Body.CreatedAt)
	}

	return common.Median(times)
}
