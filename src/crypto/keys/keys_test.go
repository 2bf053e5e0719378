package keys

import (
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mosaicnetworks/gossipledger/src/crypto"
)

func TestSimpleKeyfile(t *testing.T) {
	dir := t.TempDir()

	keyfile := NewSimpleKeyfile(filepath.Join(dir, "priv_key"))

	key, err := keyfile.ReadKey()
	if err == nil {
		t.Fatalf("ReadKey should fail on a missing file")
	}
	if key != nil {
		t.Fatalf("key should be nil")
	}

	key, _ = GenerateECDSAKey()

	if err := keyfile.WriteKey(key); err != nil {
		t.Fatalf("err: %v", err)
	}

	nKey, err := keyfile.ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !reflect.DeepEqual(DumpPrivateKey(nKey), DumpPrivateKey(key)) {
		t.Fatalf("private keys do not match")
	}

	if PublicKeyHex(&nKey.PublicKey) != PublicKeyHex(&key.PublicKey) {
		t.Fatalf("public keys do not match")
	}
}

func TestFilePermissions(t *testing.T) {
	dir := t.TempDir()

	key, _ := GenerateECDSAKey()
	rawKey := PrivateKeyHex(key)

	badKeyPath := filepath.Join(dir, "priv_key_bad")

	shouldErr := []os.FileMode{
		0777, 0766, 0744,
		0677, 0666, 0644,
		0477, 0466, 0444,
	}

	for _, fm := range shouldErr {
		os.Remove(badKeyPath)
		if err := os.WriteFile(badKeyPath, []byte(rawKey), fm); err != nil {
			t.Fatal(err)
		}
		os.Chmod(badKeyPath, fm)

		if _, err := NewSimpleKeyfile(badKeyPath).ReadKey(); err == nil {
			t.Fatalf("%o || key file should return a permissions error", fm)
		}
	}

	goodKeyPath := filepath.Join(dir, "priv_key_good")

	shouldNotErr := []os.FileMode{
		0700, 0600, 0500, 0400,
	}

	for _, fm := range shouldNotErr {
		os.Remove(goodKeyPath)
		if err := os.WriteFile(goodKeyPath, []byte(rawKey), fm); err != nil {
			t.Fatal(err)
		}
		os.Chmod(goodKeyPath, fm)

		if _, err := NewSimpleKeyfile(goodKeyPath).ReadKey(); err != nil {
			t.Fatalf("%o || key file should not return an error. Got %v", fm, err)
		}
	}
}

func TestParsePrivateKeyRejectsBadInput(t *testing.T) {
	if _, err := ParsePrivateKey([]byte{1, 2, 3}); err == nil {
		t.Fatal("short key should be rejected")
	}

	if _, err := ParsePrivateKey(make([]byte, 32)); err == nil {
		t.Fatal("zero key should be rejected")
	}

	tooBig := secp256k1N.FillBytes(make([]byte, 32))
	if _, err := ParsePrivateKey(tooBig); err == nil {
		t.Fatal("key >= N should be rejected")
	}
}

func TestSignatureEncoding(t *testing.T) {
	privKey, _ := GenerateECDSAKey()

	msg := "J'aime mieux forger mon ame que la meubler"
	digest := crypto.SHA256([]byte(msg))

	r, s, _ := Sign(privKey, digest)

	encodedSig := EncodeSignature(r, s)

	dr, ds, err := DecodeSignature(encodedSig)
	if err != nil {
		t.Fatalf("error decoding %v: %v", encodedSig, err)
	}

	if r.Cmp(dr) != 0 {
		t.Fatalf("signature R values differ")
	}

	if s.Cmp(ds) != 0 {
		t.Fatalf("signature S values differ")
	}

	if _, _, err := DecodeSignature("nope"); err == nil {
		t.Fatalf("decoding a malformed signature should fail")
	}

	if _, _, err := DecodeSignature("zz!|1"); err == nil {
		t.Fatalf("decoding a non base 36 value should fail")
	}
}

func TestSignatureMalleability(t *testing.T) {
	key, _ := GenerateECDSAKey()
	pub := FromPublicKey(&key.PublicKey)
	digest := crypto.SHA256([]byte("only one encoding"))

	for i := 0; i < 20; i++ {
		r, s, err := Sign(key, digest)
		if err != nil {
			t.Fatal(err)
		}

		if s.Cmp(secp256k1HalfN) > 0 {
			t.Fatalf("Sign returned a high s")
		}

		sig := EncodeSignature(r, s)
		if !VerifyDigest(pub, digest, sig) {
			t.Fatalf("canonical signature should verify")
		}

		highS := new(big.Int).Sub(secp256k1N, s)

		variants := map[string]string{
			"leading zero on r": "0" + sig,
			"leading zero on s": r.Text(36) + "|0" + s.Text(36),
			"plus sign":         "+" + sig,
			"upper case":        strings.ToUpper(sig),
			"high s":            EncodeSignature(r, highS),
		}

		for name, v := range variants {
			if v == sig {
				continue
			}
			if _, _, err := DecodeSignature(v); err == nil {
				t.Fatalf("%s: DecodeSignature(%q) should fail", name, v)
			}
			if VerifyDigest(pub, digest, v) {
				t.Fatalf("%s: re-encoded signature should not verify", name)
			}
		}
	}

	if _, _, err := DecodeSignature("0|1"); err == nil {
		t.Fatalf("r = 0 should be rejected")
	}
}

func TestSignVerifyDigest(t *testing.T) {
	key, _ := GenerateECDSAKey()
	other, _ := GenerateECDSAKey()

	digest := crypto.SHA256([]byte("transfer 10 to bob"))

	sig, err := SignDigest(key, digest)
	if err != nil {
		t.Fatal(err)
	}

	pub := FromPublicKey(&key.PublicKey)

	if !VerifyDigest(pub, digest, sig) {
		t.Fatal("signature should verify with the signer's key")
	}

	if VerifyDigest(FromPublicKey(&other.PublicKey), digest, sig) {
		t.Fatal("signature should not verify with another key")
	}

	if VerifyDigest(pub, crypto.SHA256([]byte("transfer 11 to bob")), sig) {
		t.Fatal("signature should not verify another digest")
	}

	if VerifyDigest([]byte("garbage"), digest, sig) {
		t.Fatal("invalid public key should not verify")
	}

	if VerifyDigest(pub, digest, "1|") {
		t.Fatal("malformed signature should not verify")
	}

	if PublicKeyFromHex(PublicKeyHex(&key.PublicKey)) == nil {
		t.Fatal("PublicKeyFromHex should invert PublicKeyHex")
	}
}
