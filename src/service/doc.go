// Package service implements the HTTP API of a node.
//
//  GET  /stats              node statistics
//  GET  /peers              current roster
//  GET  /events/{index}     event at a position of the total order
//  GET  /accounts           all ledger accounts
//  GET  /accounts/{address} one ledger account
//  GET  /receipts/{index}   receipt of the entry at a position of the total order
//  POST /transfers          submit {"to": address, "amount": n} from the node's account
//  GET  /metrics            Prometheus metrics
package service
