// Package config defines the configuration for a gossipledger node.
//
// Regardless of how a node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// configuration options, a node relies on a data directory, defined by
// Config.DataDir, where it expects to find a few additional files:
//
//  priv_key // a plain text file containing the raw private key (cf. gossipledger keygen).
//  peers.json // a JSON file containing the seed peers, self included.
//  gossipledger.toml // (optional) configuration file, overridden by command line flags.
package config
