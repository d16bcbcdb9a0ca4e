package gate

import (
	"context"
	"sync"
	"time"
)

type nonceRecord struct {
	nonce     string
	expiresAt time.Time
}

// MemoryStore is the in-process Store used in dev and tests. All access
// is serialized by one mutex; the maps are small (one record per user).
type MemoryStore struct {
	mu       sync.Mutex
	nonces   map[string]nonceRecord
	verified map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nonces:   make(map[string]nonceRecord),
		verified: make(map[string]string),
	}
}

func (s *MemoryStore) PutNonce(_ context.Context, userID, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	s.nonces[userID] = nonceRecord{
		nonce:     nonce,
		expiresAt: time.Now().Add(ttl),
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetNonce(_ context.Context, userID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.nonces[userID]
	if !ok {
		return "", false, nil
	}
	if time.Now().After(rec.expiresAt) {
		delete(s.nonces, userID)
		return "", false, nil
	}
	return rec.nonce, true, nil
}

func (s *MemoryStore) DeleteNonce(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.nonces, userID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SetVerified(_ context.Context, userID, wallet string) error {
	s.mu.Lock()
	s.verified[userID] = wallet
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Verified(_ context.Context, userID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.verified[userID]
	return wallet, ok, nil
}
