// Package peers defines the concept of a peer and implements functions to
// manage collections of peers.
//
// A peer is an entity that operates a node. It is identified by its public
// key, and optionally a moniker which is a non-unique user-friendly name. It
// also specifies an IP address and port where it can be reached by other
// peers.
//
// Upon starting up, a node expects to find a peers.json file in its data
// directory. The file lists the participants of the network; its length is
// the number of participants used by the consensus algorithm, and its entries
// are the seeds of the node's Roster. The Roster is the dynamic list of peers
// the node gossips with: peers that contact the node are added to it, and
// peers that cannot be reached are removed from it, unless they are seeds.
package peers
