package pipeline

import (
	"sync"
	"time"
)

// UnknownThrottle gates how often unknown-face evidence is captured per
// camera. A camera may save again once the configured interval has elapsed
// since its last recorded save.
type UnknownThrottle struct {
	mu        sync.Mutex
	interval  time.Duration
	lastSaved map[string]time.Time
	now       func() time.Time
}

// NewUnknownThrottle creates a throttle with the given cooldown interval.
func NewUnknownThrottle(interval time.Duration) *UnknownThrottle {
	return &UnknownThrottle{
		interval:  interval,
		lastSaved: make(map[string]time.Time),
		now:       time.Now,
	}
}

// SetClock replaces the throttle's clock. Intended for tests.
func (u *UnknownThrottle) SetClock(now func() time.Time) { u.now = now }

// Allow reports whether cameraID is currently outside its cooldown window.
func (u *UnknownThrottle) Allow(cameraID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	last, ok := u.lastSaved[cameraID]
	if !ok {
		return true
	}
	return u.now().Sub(last) > u.interval
}

// MarkSaved records that evidence was written for cameraID, starting its
// cooldown window.
func (u *UnknownThrottle) MarkSaved(cameraID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lastSaved[cameraID] = u.now()
}
