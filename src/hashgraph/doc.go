// Package hashgraph implements the consensus algorithm.
//
// The algorithm is the Hashgraph consensus algorithm invented by Leemon Baird:
//
// http://www.swirlds.com/downloads/SWIRLDS-TR-2016-01.pdf
//
// Events
//
// Participants record every gossip exchange in an Event signed by its creator.
// An Event references two parents: the creator's previous event (self-parent)
// and the last event of the peer it synced with (other-parent). The events form
// a directed acyclic graph where every participant can compute the same total
// order without exchanging votes.
//
// Consensus
//
// The ConsensusEngine feeds the EventIndex to three successive stages.
// DivideRounds assigns rounds and identifies witnesses, DecideFame runs the
// virtual voting on the fame of witnesses, and FindOrder computes the
// round-received and consensus timestamp of events. Events that reach
// consensus are sorted with the ConsensusSorter and given their final index.
// Running the engine after every insertion or once over the whole graph yields
// the same order.
//
// Store
//
// The engine persists events and the total order through the Store interface.
// InmemStore keeps bounded LRU caches. BadgerStore writes through to a Badger
// database from which a restarted engine can be bootstrapped.
package hashgraph
