package gate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreReissueInvalidatesPriorNonce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.PutNonce(ctx, "u1", "first", time.Minute); err != nil {
		t.Fatalf("PutNonce: %v", err)
	}
	if err := s.PutNonce(ctx, "u1", "second", time.Minute); err != nil {
		t.Fatalf("PutNonce: %v", err)
	}

	nonce, ok, err := s.GetNonce(ctx, "u1")
	if err != nil {
		t.Fatalf("GetNonce: %v", err)
	}
	if !ok || nonce != "second" {
		t.Fatalf("expected only the second nonce to be active, got %q (ok=%v)", nonce, ok)
	}
}

func TestMemoryStoreNonceExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.PutNonce(ctx, "u1", "n", 10*time.Millisecond); err != nil {
		t.Fatalf("PutNonce: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if _, ok, _ := s.GetNonce(ctx, "u1"); ok {
		t.Fatalf("expected expired nonce to be absent")
	}
	// A second read must not resurrect it.
	if _, ok, _ := s.GetNonce(ctx, "u1"); ok {
		t.Fatalf("expired nonce came back on second read")
	}
}

func TestMemoryStoreVerified(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, _ := s.Verified(ctx, "u1"); ok {
		t.Fatalf("user should start unverified")
	}

	if err := s.SetVerified(ctx, "u1", "walletX"); err != nil {
		t.Fatalf("SetVerified: %v", err)
	}

	wallet, ok, err := s.Verified(ctx, "u1")
	if err != nil {
		t.Fatalf("Verified: %v", err)
	}
	if !ok || wallet != "walletX" {
		t.Fatalf("expected walletX, got %q (ok=%v)", wallet, ok)
	}
}
