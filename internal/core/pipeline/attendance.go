package pipeline

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// AttendanceLog receives one record per confirmed identity.
type AttendanceLog interface {
	Append(label, cameraID string, ts time.Time) error
}

// Tracker counts sightings of known identities and logs attendance once a
// label reaches the required confirmation count. Confirmation is scoped to
// the process lifetime and shared across all cameras: a label seen on any
// camera advances the same counter, and a confirmed label never re-confirms.
type Tracker struct {
	mu          sync.Mutex
	required    int
	counts      map[string]int
	confirmedAt map[string]time.Time
	ledger      AttendanceLog
	now         func() time.Time
}

// NewTracker creates a tracker that confirms after required sightings and
// appends confirmed attendance to ledger.
func NewTracker(required int, ledger AttendanceLog) *Tracker {
	return &Tracker{
		required:    required,
		counts:      make(map[string]int),
		confirmedAt: make(map[string]time.Time),
		ledger:      ledger,
		now:         time.Now,
	}
}

// SetClock replaces the tracker's clock. Intended for tests.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// Observe records one sighting of label on cameraID. It returns true exactly
// once per label: on the sighting that crosses the confirmation threshold.
// That transition appends the attendance record; a failed ledger write is
// logged but does not roll the state back.
func (t *Tracker) Observe(label, cameraID string) (confirmed bool, ts time.Time) {
	t.mu.Lock()

	if _, done := t.confirmedAt[label]; done {
		t.mu.Unlock()
		return false, time.Time{}
	}

	t.counts[label]++
	if count := t.counts[label]; count < t.required {
		t.mu.Unlock()
		log.Debugf("Confirmation %d/%d for %s (camera %s)", count, t.required, label, cameraID)
		return false, time.Time{}
	}

	ts = t.now()
	t.confirmedAt[label] = ts
	t.mu.Unlock()

	// The ledger write happens outside the lock so a slow or hung disk
	// never stalls sightings of other labels on other workers.
	if err := t.ledger.Append(label, cameraID, ts); err != nil {
		log.WithError(err).Errorf("Failed to log attendance for %s", label)
	} else {
		log.Infof("Attendance logged: %s at %s (camera %s)", label, ts.Format(TimestampLayout), cameraID)
	}

	return true, ts
}

// Confirmed reports whether label has already been confirmed this run.
func (t *Tracker) Confirmed(label string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.confirmedAt[label]
	return ok
}

// ConfirmedCount returns the number of identities confirmed this run.
func (t *Tracker) ConfirmedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.confirmedAt)
}
