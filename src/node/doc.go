// Package node implements the reactive component of a gossipledger node.
//
// A Node ties together the gossip Engine, the hashgraph ConsensusEngine and
// the Ledger. It runs two independent timers:
//
// Gossip
//
// On every heartbeat the node ticks its gossip Engine, which syncs with a
// random peer. The OnTick hook feeds the events accepted since the previous
// tick into the ConsensusEngine. Failed syncs come back through the OnError
// hook: a peer that could not be reached is removed from the roster, unless it
// is a seed, in which case it stays and will be retried on a later tick. Peers
// that answer with an error are kept.
//
// Consensus
//
// On every consensus interval the node feeds the ConsensusEngine with any
// events it hasn't seen yet, runs a consensus pass, and applies the payloads of
// the newly ordered events to the Ledger.
//
// Transactions
//
// SubmitTransfer signs a transfer with the node's key and queues it in the
// TransactionPool. The gossip Engine pops one transaction from the pool for
// every new self-event.
package node
