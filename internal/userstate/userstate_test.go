package userstate

import (
	"sync"
	"testing"
	"time"
)

func TestAllowThrottlesPerUser(t *testing.T) {
	tr := NewTracker(5, time.Minute)
	defer tr.Close()

	for i := 0; i < 5; i++ {
		if !tr.Allow("u1") {
			t.Fatalf("command %d should be allowed", i+1)
		}
	}
	if tr.Allow("u1") {
		t.Fatalf("sixth command within the window should be throttled")
	}

	// A different user has an independent budget.
	if !tr.Allow("u2") {
		t.Fatalf("other users must not share the throttle")
	}
}

func TestImageSlotIsExclusive(t *testing.T) {
	tr := NewTracker(5, time.Minute)
	defer tr.Close()

	if !tr.TryStartImage("u1") {
		t.Fatalf("first claim should succeed")
	}
	if tr.TryStartImage("u1") {
		t.Fatalf("second claim while in flight should fail")
	}

	tr.FinishImage("u1")

	if !tr.TryStartImage("u1") {
		t.Fatalf("slot should be free after FinishImage")
	}
}

func TestImageSlotConcurrentClaims(t *testing.T) {
	tr := NewTracker(5, time.Minute)
	defer tr.Close()

	const goroutines = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.TryStartImage("u1") {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var n int
	for range wins {
		n++
	}
	if n != 1 {
		t.Fatalf("exactly one concurrent claim may win, got %d", n)
	}
}

func TestFinishImageUnknownUser(t *testing.T) {
	tr := NewTracker(5, time.Minute)
	defer tr.Close()

	// Must not panic or create state.
	tr.FinishImage("nobody")
}
