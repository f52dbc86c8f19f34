package processor

import (
	"sync"
	"time"
)

// FrameStore holds the most recent annotated frame per camera as encoded
// JPEG bytes. Each publish overwrites the previous frame; no history is kept.
// The live-view collaborator reads from here.
type FrameStore struct {
	mu     sync.RWMutex
	frames map[string]frameEntry
}

type frameEntry struct {
	jpeg []byte
	at   time.Time
}

// NewFrameStore creates an empty store.
func NewFrameStore() *FrameStore {
	return &FrameStore{frames: make(map[string]frameEntry)}
}

// Publish stores the newest annotated frame for a camera. The caller must
// not reuse the byte slice afterwards.
func (f *FrameStore) Publish(cameraID string, jpeg []byte, at time.Time) {
	f.mu.Lock()
	f.frames[cameraID] = frameEntry{jpeg: jpeg, at: at}
	f.mu.Unlock()
}

// Latest returns the newest frame for a camera and the time it was captured.
func (f *FrameStore) Latest(cameraID string) ([]byte, time.Time, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entry, ok := f.frames[cameraID]
	return entry.jpeg, entry.at, ok
}

// LastUpdate returns when a camera last published a frame.
func (f *FrameStore) LastUpdate(cameraID string) (time.Time, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entry, ok := f.frames[cameraID]
	return entry.at, ok
}
