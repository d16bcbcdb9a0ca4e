package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ReplyKey identifies a cached AI reply. Uniqueness is logical on
// (message, persona): the persona is kept readable for log scoping, the
// message is hashed.
type ReplyKey struct {
	Persona string
	Hash    string
}

// String converts the structured key into the final string used in
// Redis/map lookups: reply:<PERSONA>:<HASH_HEX>.
func (k ReplyKey) String() string {
	return fmt.Sprintf("reply:%s:%s", k.Persona, k.Hash)
}

// BuildReplyKey normalizes the user message and persona into a stable
// cache key. Messages are trimmed but otherwise hashed as-is; personas
// are lowercased so "Chibi" and "chibi" share entries.
func BuildReplyKey(message, persona string) ReplyKey {
	persona = strings.ToLower(strings.TrimSpace(persona))
	persona = strings.ReplaceAll(persona, ":", "_")

	normalized := "persona:" + persona + "|message:" + strings.TrimSpace(message)
	sum := sha256.Sum256([]byte(normalized))

	return ReplyKey{
		Persona: persona,
		Hash:    hex.EncodeToString(sum[:]),
	}
}

// ReplyCache is the store consulted by the responder before calling the
// AI provider. Implemented by the memory cache (dev) and Redis (prod).
type ReplyCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
