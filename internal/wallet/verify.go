// Package wallet verifies that a wallet controls an address by checking
// an ed25519 signature over a challenge nonce. Solana addresses are
// base58-encoded ed25519 public keys, so the address itself is the
// verification key.
package wallet

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const signatureSize = ed25519.SignatureSize

// VerifySignature reports whether signature is a valid ed25519 signature
// of nonce by the key behind the base58 address. Malformed inputs are
// errors; a well-formed but wrong signature is (false, nil).
func VerifySignature(address, signature, nonce string) (bool, error) {
	if nonce == "" {
		return false, fmt.Errorf("wallet: empty nonce")
	}

	pub, err := base58.Decode(address)
	if err != nil {
		return false, fmt.Errorf("wallet: decode address: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("wallet: address is not a %d-byte public key (%d bytes)",
			ed25519.PublicKeySize, len(pub))
	}

	sig, err := base58.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("wallet: decode signature: %w", err)
	}
	if len(sig) != signatureSize {
		return false, fmt.Errorf("wallet: signature is not %d bytes (%d bytes)",
			signatureSize, len(sig))
	}

	return ed25519.Verify(ed25519.PublicKey(pub), []byte(nonce), sig), nil
}
