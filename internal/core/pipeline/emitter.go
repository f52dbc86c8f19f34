package pipeline

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventSink forwards a detection event to an external boundary.
type EventSink interface {
	Forward(ctx context.Context, event Event) error
}

type emitKey struct {
	camera string
	label  string
}

// Emitter is a rate-limited event dispatcher. Events for the same
// (camera, label) pair inside the minimum interval are discarded, not queued.
// Forwarding is fire-and-forget: failures are logged, never retried, and the
// emission timestamp advances whether or not the forward succeeded.
type Emitter struct {
	mu       sync.Mutex
	interval time.Duration
	lastSent map[emitKey]time.Time
	sinks    []EventSink
	now      func() time.Time
}

// NewEmitter creates an emitter dispatching to the given sinks.
func NewEmitter(interval time.Duration, sinks ...EventSink) *Emitter {
	return &Emitter{
		interval: interval,
		lastSent: make(map[emitKey]time.Time),
		sinks:    sinks,
		now:      time.Now,
	}
}

// SetClock replaces the emitter's clock. Intended for tests.
func (e *Emitter) SetClock(now func() time.Time) { e.now = now }

// Emit forwards event unless a prior event for the same (camera, label) was
// emitted within the minimum interval. It returns true when the event was
// forwarded to the sinks. The lock is released before any sink is called.
func (e *Emitter) Emit(ctx context.Context, event Event) bool {
	key := emitKey{camera: event.CameraID, label: event.Label}

	e.mu.Lock()
	now := e.now()
	if last, ok := e.lastSent[key]; ok && now.Sub(last) < e.interval {
		e.mu.Unlock()
		log.Debugf("Dropping throttled event for %s/%s", event.CameraID, event.Label)
		return false
	}
	e.lastSent[key] = now
	e.mu.Unlock()

	for _, sink := range e.sinks {
		if err := sink.Forward(ctx, event); err != nil {
			log.WithError(err).Warnf("Failed to forward event for %s/%s", event.CameraID, event.Label)
		}
	}
	return true
}
