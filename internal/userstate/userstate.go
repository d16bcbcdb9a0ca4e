// Package userstate holds the shared mutable per-user state of the
// dispatcher: command rate limiters and in-flight image-job flags. All
// access goes through one keyed, mutex-protected map so two concurrent
// updates from the same user cannot double-start work.
package userstate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter       *rate.Limiter
	imageInFlight bool
	lastSeen      time.Time
}

// Tracker tracks per-user throttle and image-job state. Idle entries are
// swept periodically so the map does not grow with every user ever seen.
type Tracker struct {
	mu    sync.Mutex
	users map[string]*entry

	limit rate.Limit
	burst int

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// NewTracker builds a tracker allowing `commands` commands per `window`
// per user (e.g. 5 per minute).
func NewTracker(commands int, window time.Duration) *Tracker {
	if commands < 1 {
		commands = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	t := &Tracker{
		users:       make(map[string]*entry),
		limit:       rate.Every(window / time.Duration(commands)),
		burst:       commands,
		stopCleanup: make(chan struct{}),
	}

	go t.cleanupLoop()

	return t
}

func (t *Tracker) get(userID string) *entry {
	e, ok := t.users[userID]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.users[userID] = e
	}
	e.lastSeen = time.Now()
	return e
}

// Allow reports whether the user may run another command right now.
func (t *Tracker) Allow(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(userID).limiter.Allow()
}

// TryStartImage atomically claims the user's image slot. It returns
// false if a job is already in flight.
func (t *Tracker) TryStartImage(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.get(userID)
	if e.imageInFlight {
		return false
	}
	e.imageInFlight = true
	return true
}

// FinishImage releases the user's image slot. Callers must invoke it
// from a defer so a crashed job cannot block the user forever.
func (t *Tracker) FinishImage(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.users[userID]; ok {
		e.imageInFlight = false
	}
}

const (
	cleanupInterval = 10 * time.Minute
	idleTimeout     = time.Hour
)

func (t *Tracker) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			t.mu.Lock()
			for id, e := range t.users {
				// Never drop an entry with a job in flight.
				if !e.imageInFlight && now.Sub(e.lastSeen) > idleTimeout {
					delete(t.users, id)
				}
			}
			t.mu.Unlock()
		case <-t.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine. Call on shutdown or in tests.
func (t *Tracker) Close() error {
	t.cleanupOnce.Do(func() {
		close(t.stopCleanup)
	})
	return nil
}
