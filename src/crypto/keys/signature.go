package keys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

var secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)

// Sign signs the digest with the private key. The returned s is always in the
// lower half of the curve order, so every signature has a single encoding.
func Sign(priv *ecdsa.PrivateKey, digest []byte) (r, s *big.Int, err error) {
	r, s, err = ecdsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		return nil, nil, err
	}

	if s.Cmp(secp256k1HalfN) > 0 {
		s = new(big.Int).Sub(secp256k1N, s)
	}

	return r, s, nil
}

// Verify reports whether (r, s) is a valid signature of digest by pub. It
// returns false, rather than panicking, on nil or malformed inputs.
func Verify(pub *ecdsa.PublicKey, digest []byte, r, s *big.Int) bool {
	if pub == nil || pub.X == nil || pub.Y == nil || r == nil || s == nil {
		return false
	}
	return ecdsa.Verify(pub, digest, r, s)
}

// EncodeSignature returns the "r|s" base 36 representation of a signature.
func EncodeSignature(r, s *big.Int) string {
	return fmt.Sprintf("%s|%s", r.Text(36), s.Text(36))
}

// DecodeSignature parses a signature produced by EncodeSignature. Only the
// canonical form is accepted: no sign, no leading zeros, lower-case digits,
// 0 < r < N and 0 < s <= N/2.
func DecodeSignature(sig string) (r, s *big.Int, err error) {
	values := strings.Split(sig, "|")
	if len(values) != 2 {
		return nil, nil, fmt.Errorf("wrong number of values in signature: got %d, want 2", len(values))
	}

	r, ok := new(big.Int).SetString(values[0], 36)
	if !ok {
		return nil, nil, fmt.Errorf("invalid signature r value %q", values[0])
	}

	s, ok = new(big.Int).SetString(values[1], 36)
	if !ok {
		return nil, nil, fmt.Errorf("invalid signature s value %q", values[1])
	}

	if r.Sign() <= 0 || r.Cmp(secp256k1N) >= 0 {
		return nil, nil, fmt.Errorf("signature r value out of range")
	}

	if s.Sign() <= 0 || s.Cmp(secp256k1HalfN) > 0 {
		return nil, nil, fmt.Errorf("signature s value out of range")
	}

	if EncodeSignature(r, s) != sig {
		return nil, nil, fmt.Errorf("non-canonical signature encoding")
	}

	return r, s, nil
}

// SignDigest signs digest and returns the encoded signature.
func SignDigest(priv *ecdsa.PrivateKey, digest []byte) (string, error) {
	r, s, err := Sign(priv, digest)
	if err != nil {
		return "", err
	}
	return EncodeSignature(r, s), nil
}

// VerifyDigest checks an encoded signature of digest against a raw public
// key. Any decoding problem yields false.
func VerifyDigest(pubBytes []byte, digest []byte, sig string) bool {
	pub := ToPublicKey(pubBytes)
	if pub == nil {
		return false
	}

	r, s, err := DecodeSignature(sig)
	if err != nil {
		return false
	}

	return Verify(pub, digest, r, s)
}
