// Package net implements the transports used by nodes to gossip.
//
// A Transport sends SyncRequests to other nodes and delivers incoming ones as
// RPCs on its Consumer channel. There are two implementations:
//
// - Inmem: in-memory transport used only for testing
//
// - TCP: communicating over plain TCP
//
// Errors returned by Sync fall into two categories. A *ResponseError means the
// remote node received the request and replied with an error. Any other error
// means the request did not get through: the peer could not be dialed, the
// connection failed, or the request timed out.
//
// TCP
//
// To use a TCP transport, set the following configuration options in the
// Config object (cf config package):
//
// - BindAddr: the IP:PORT of the TCP socket that the node binds to.
//
// - AdvertiseAddr: (optional) The address that is advertised to other nodes. If
// BindAddr is a local address not reachable by other peers, it is usefull to
// set AdvertiseAddr to the reachable public address.
package net
