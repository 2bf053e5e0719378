package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"

	"github.com/mosaicnetworks/gossipledger/src/common"
)

// ToPublicKey parses the uncompressed form of a point on the curve, as
// returned by FromPublicKey. It returns nil if pub is not a valid point.
func ToPublicKey(pub []byte) *ecdsa.PublicKey {
	if len(pub) == 0 {
		return nil
	}
	x, y := elliptic.Unmarshal(Curve(), pub)
	if x == nil {
		return nil
	}
	return &ecdsa.PublicKey{Curve: Curve(), X: x, Y: y}
}

// FromPublicKey returns the uncompressed form of the public key.
func FromPublicKey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.Marshal(Curve(), pub.X, pub.Y)
}

// PublicKeyID gives a short, collision-prone, uint32 representation of a
// public key. It is only used to label peers in logs and stats.
func PublicKeyID(pubBytes []byte) uint32 {
	return common.Hash32(pubBytes)
}

// PublicKeyHex returns the 0X-prefixed hex representation of the uncompressed
// public key. It is the canonical participant address.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return common.EncodeToString(FromPublicKey(pub))
}

// PublicKeyFromHex is the inverse of PublicKeyHex
func PublicKeyFromHex(pubHex string) *ecdsa.PublicKey {
	b, err := common.DecodeFromString(pubHex)
	if err != nil {
		return nil
	}
	return ToPublicKey(b)
}
