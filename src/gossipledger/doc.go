// Package gossipledger assembles a node from its configuration.
//
// The data directory holds the private key (priv_key), the list of
// participants (peers.json) and, when the store is enabled, the Badger
// databases of events and of the ledger. Every participant listed in
// peers.json starts with the configured initial balance.
package gossipledger
