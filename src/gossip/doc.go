// Package gossip implements the push-pull gossip protocol that spreads events
// between peers.
//
// Every node keeps the set of events it has accepted and the last event it
// created. On each tick it picks a random peer from its roster and sends it a
// SyncRequest carrying all its events and its last event. The peer ingests
// them and answers with its own events and last event in the SyncResponse.
// Both sides then go through the same steps:
//
//  1. keep only the items they didn't know yet
//  2. drop items with a bad signature, a payload refused by the Validator, an
//     id that is already taken, or a self-parent created by someone else
//  3. accept items whose parents are known, repeating until no more items
//     can be accepted, so that parents arriving in the same batch count
//  4. if the peer's last event is known, create one new event whose
//     self-parent is our last event and whose other-parent is the peer's
//     last event. This event records the sync and carries at most one
//     payload from the PayloadSource.
//
// The Engine knows nothing about consensus. It reports what happens through
// Hooks, and the node uses them to feed the ConsensusEngine and to maintain
// the roster.
package gossip
