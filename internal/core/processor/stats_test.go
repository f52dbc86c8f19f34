package processor

import (
	"sync"
	"testing"
)

func TestStatsCounters(t *testing.T) {
	stats := NewStats()

	stats.RecordDetection(true)
	stats.RecordDetection(true)
	stats.RecordDetection(false)
	stats.RecordAttendance()

	snap := stats.Snapshot()
	if snap.TotalDetections != 3 {
		t.Errorf("TotalDetections = %d, want 3", snap.TotalDetections)
	}
	if snap.KnownFaces != 2 {
		t.Errorf("KnownFaces = %d, want 2", snap.KnownFaces)
	}
	if snap.UnknownFaces != 1 {
		t.Errorf("UnknownFaces = %d, want 1", snap.UnknownFaces)
	}
	if snap.Attendance != 1 {
		t.Errorf("Attendance = %d, want 1", snap.Attendance)
	}
}

func TestStatsConcurrentRecording(t *testing.T) {
	stats := NewStats()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(known bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stats.RecordDetection(known)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	snap := stats.Snapshot()
	if snap.TotalDetections != 800 {
		t.Errorf("TotalDetections = %d, want 800", snap.TotalDetections)
	}
	if snap.KnownFaces != 400 || snap.UnknownFaces != 400 {
		t.Errorf("known/unknown = %d/%d, want 400/400", snap.KnownFaces, snap.UnknownFaces)
	}
}
