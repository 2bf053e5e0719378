// Package keys implements the public key cryptography used by gossipledger.
//
// Every participant owns a secp256k1 key-pair. The uncompressed public key is
// the participant's identity: it is the Creator of its events, the address of
// its ledger account and the key other participants use to verify its
// signatures. Signatures are ECDSA (r, s) pairs encoded as "r|s" in base 36.
package keys
