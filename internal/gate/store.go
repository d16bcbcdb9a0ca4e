// Package gate implements wallet verification for token-gated access:
// a per-user challenge nonce store, ed25519 signature checking, and an
// on-chain balance requirement. Per user the flow moves
// unchallenged -> nonce issued -> verified, falling back to unchallenged
// on expiry or failure.
package gate

import (
	"context"
	"time"
)

// Store holds the two persisted gate collections: the single active
// nonce per user and the verified-wallet records. Implemented by the
// memory store (dev) and Redis (prod).
type Store interface {
	// PutNonce upserts the user's nonce: any prior nonce is replaced.
	PutNonce(ctx context.Context, userID, nonce string, ttl time.Duration) error
	// GetNonce returns the active nonce, reporting absence once expired.
	// An expired record is discarded, not resurrected.
	GetNonce(ctx context.Context, userID string) (string, bool, error)
	// DeleteNonce removes the user's nonce (consumed on verification).
	DeleteNonce(ctx context.Context, userID string) error

	// SetVerified records the wallet that passed verification.
	SetVerified(ctx context.Context, userID, wallet string) error
	// Verified returns the verified wallet for the user, if any.
	Verified(ctx context.Context, userID string) (string, bool, error)
}
