package processor

import (
	"bytes"
	"testing"
	"time"
)

func TestFrameStore(t *testing.T) {
	store := NewFrameStore()

	if _, _, ok := store.Latest("cam1"); ok {
		t.Error("Latest returned ok for a camera that never published")
	}

	first := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	store.Publish("cam1", []byte("frame-a"), first)

	jpeg, at, ok := store.Latest("cam1")
	if !ok {
		t.Fatal("Latest returned !ok after publish")
	}
	if !bytes.Equal(jpeg, []byte("frame-a")) {
		t.Errorf("Latest frame = %q, want frame-a", jpeg)
	}
	if !at.Equal(first) {
		t.Errorf("Latest time = %v, want %v", at, first)
	}

	// A newer publish replaces the previous frame outright.
	second := first.Add(time.Second)
	store.Publish("cam1", []byte("frame-b"), second)

	jpeg, at, _ = store.Latest("cam1")
	if !bytes.Equal(jpeg, []byte("frame-b")) {
		t.Errorf("Latest frame = %q, want frame-b", jpeg)
	}
	if !at.Equal(second) {
		t.Errorf("Latest time = %v, want %v", at, second)
	}

	if up, ok := store.LastUpdate("cam1"); !ok || !up.Equal(second) {
		t.Errorf("LastUpdate = (%v, %v), want (%v, true)", up, ok, second)
	}
	if _, ok := store.LastUpdate("cam2"); ok {
		t.Error("LastUpdate returned ok for unknown camera")
	}
}

func TestFrameStorePerCamera(t *testing.T) {
	store := NewFrameStore()
	now := time.Now()

	store.Publish("cam1", []byte("one"), now)
	store.Publish("cam2", []byte("two"), now)

	if jpeg, _, _ := store.Latest("cam1"); !bytes.Equal(jpeg, []byte("one")) {
		t.Errorf("cam1 frame = %q", jpeg)
	}
	if jpeg, _, _ := store.Latest("cam2"); !bytes.Equal(jpeg, []byte("two")) {
		t.Errorf("cam2 frame = %q", jpeg)
	}
}
