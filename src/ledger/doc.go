// Package ledger is the application that consumes the total order: a simple
// account ledger whose state changes only through signed transfers.
//
// Transactions travel as event payloads. PayloadValidator lets the gossip
// layer drop events whose payload is not a transaction signed by the event's
// creator. Once events reach consensus they are turned into Entries and given
// to Ledger.Apply, which applies each entry exactly once, in the order of the
// consensus index, and records a Receipt for it.
//
// Accounts are addressed by the hex representation of their public key, the
// same string that identifies the creator of an event.
package ledger
