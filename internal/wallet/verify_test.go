package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
)

func testKeypair(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base58.Encode(pub), priv
}

func TestVerifySignatureValid(t *testing.T) {
	t.Parallel()

	address, priv := testKeypair(t)
	nonce := "c0ffee00deadbeef"

	sig := base58.Encode(ed25519.Sign(priv, []byte(nonce)))

	ok, err := VerifySignature(address, sig, nonce)
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if !ok {
		t.Fatalf("valid signature rejected")
	}
}

func TestVerifySignatureTampered(t *testing.T) {
	t.Parallel()

	address, priv := testKeypair(t)
	nonce := "c0ffee00deadbeef"

	raw := ed25519.Sign(priv, []byte(nonce))
	raw[0] ^= 0xff
	sig := base58.Encode(raw)

	ok, err := VerifySignature(address, sig, nonce)
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if ok {
		t.Fatalf("tampered signature accepted")
	}
}

func TestVerifySignatureWrongNonce(t *testing.T) {
	t.Parallel()

	address, priv := testKeypair(t)

	sig := base58.Encode(ed25519.Sign(priv, []byte("nonce-one")))

	ok, err := VerifySignature(address, sig, "nonce-two")
	if err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
	if ok {
		t.Fatalf("signature of a different nonce accepted")
	}
}

func TestVerifySignatureMalformedInputs(t *testing.T) {
	t.Parallel()

	address, priv := testKeypair(t)
	sig := base58.Encode(ed25519.Sign(priv, []byte("n")))

	if _, err := VerifySignature("not-base58-0OIl", sig, "n"); err == nil {
		t.Fatalf("expected error for malformed address")
	}
	if _, err := VerifySignature(address, "zz", "n"); err == nil {
		t.Fatalf("expected error for short signature")
	}
	if _, err := VerifySignature(address, sig, ""); err == nil {
		t.Fatalf("expected error for empty nonce")
	}
}
