package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Forward(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestEmitterThrottlesPerCameraLabel(t *testing.T) {
	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	current := start

	sink := &recordingSink{}
	emitter := NewEmitter(10*time.Second, sink)
	emitter.SetClock(func() time.Time { return current })

	ctx := context.Background()
	event := NewEvent("cam1", "Alice", 0.9, start, Box{X1: 10, Y1: 10, X2: 50, Y2: 50})

	// A burst inside the window forwards exactly once.
	for i := 0; i < 5; i++ {
		current = start.Add(time.Duration(i) * time.Second)
		sent := emitter.Emit(ctx, event)
		if (i == 0) != sent {
			t.Errorf("emit %d: sent = %v", i, sent)
		}
	}
	if sink.count() != 1 {
		t.Fatalf("sink received %d events, want 1", sink.count())
	}

	// Past the window the next event goes through.
	current = start.Add(11 * time.Second)
	if !emitter.Emit(ctx, event) {
		t.Error("emit after interval elapsed was dropped")
	}
	if sink.count() != 2 {
		t.Errorf("sink received %d events, want 2", sink.count())
	}
}

func TestEmitterSpacedEventsAllForwarded(t *testing.T) {
	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	current := start

	sink := &recordingSink{}
	emitter := NewEmitter(10*time.Second, sink)
	emitter.SetClock(func() time.Time { return current })

	ctx := context.Background()
	event := NewEvent("cam1", "Alice", 0.9, start, Box{})

	for i := 0; i < 3; i++ {
		current = start.Add(time.Duration(i) * 11 * time.Second)
		if !emitter.Emit(ctx, event) {
			t.Errorf("spaced emit %d was dropped", i)
		}
	}
	if sink.count() != 3 {
		t.Errorf("sink received %d events, want 3", sink.count())
	}
}

func TestEmitterIndependentKeys(t *testing.T) {
	current := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	sink := &recordingSink{}
	emitter := NewEmitter(10*time.Second, sink)
	emitter.SetClock(func() time.Time { return current })

	ctx := context.Background()
	events := []Event{
		NewEvent("cam1", "Alice", 0.9, current, Box{}),
		NewEvent("cam1", "Bob", 0.9, current, Box{}),
		NewEvent("cam2", "Alice", 0.9, current, Box{}),
	}
	for _, ev := range events {
		if !emitter.Emit(ctx, ev) {
			t.Errorf("first event for %s/%s was dropped", ev.CameraID, ev.Label)
		}
	}
	if sink.count() != 3 {
		t.Errorf("sink received %d events, want 3", sink.count())
	}
}

func TestEmitterDropDoesNotExtendWindow(t *testing.T) {
	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	current := start

	sink := &recordingSink{}
	emitter := NewEmitter(10*time.Second, sink)
	emitter.SetClock(func() time.Time { return current })

	ctx := context.Background()
	event := NewEvent("cam1", "Alice", 0.9, start, Box{})

	emitter.Emit(ctx, event)

	// A dropped event must not push the window forward: the window is
	// anchored at the last forwarded event.
	current = start.Add(9 * time.Second)
	if emitter.Emit(ctx, event) {
		t.Fatal("event inside window was forwarded")
	}
	current = start.Add(10 * time.Second)
	if !emitter.Emit(ctx, event) {
		t.Error("window extended by a dropped event")
	}
}

func TestEmitterSinkFailureStillCountsAsEmitted(t *testing.T) {
	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	current := start

	failing := &recordingSink{err: errors.New("boundary unreachable")}
	healthy := &recordingSink{}
	emitter := NewEmitter(10*time.Second, failing, healthy)
	emitter.SetClock(func() time.Time { return current })

	ctx := context.Background()
	event := NewEvent("cam1", "Alice", 0.9, start, Box{})

	if !emitter.Emit(ctx, event) {
		t.Fatal("emit returned false despite passing the throttle")
	}
	// The failing sink must not stop delivery to the next sink.
	if healthy.count() != 1 {
		t.Errorf("healthy sink received %d events, want 1", healthy.count())
	}

	// The failed forward still advanced the emission timestamp.
	current = start.Add(5 * time.Second)
	if emitter.Emit(ctx, event) {
		t.Error("event inside window forwarded after a failed emit")
	}
}
