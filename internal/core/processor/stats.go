package processor

import "sync"

// Stats aggregates pipeline counters across all camera workers.
type Stats struct {
	mu              sync.Mutex
	totalDetections int64
	knownFaces      int64
	unknownFaces    int64
	attendance      int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	TotalDetections int64 `json:"total_detections"`
	KnownFaces      int64 `json:"known_faces"`
	UnknownFaces    int64 `json:"unknown_faces"`
	Attendance      int64 `json:"attendance_today"`
}

// NewStats creates an empty counter set.
func NewStats() *Stats {
	return &Stats{}
}

// RecordDetection counts one matched detection; known selects the bucket.
func (s *Stats) RecordDetection(known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalDetections++
	if known {
		s.knownFaces++
	} else {
		s.unknownFaces++
	}
}

// RecordAttendance counts one confirmed attendance entry.
func (s *Stats) RecordAttendance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance++
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		TotalDetections: s.totalDetections,
		KnownFaces:      s.knownFaces,
		UnknownFaces:    s.unknownFaces,
		Attendance:      s.attendance,
	}
}
