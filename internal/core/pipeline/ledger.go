package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var ledgerHeader = []string{"Name", "Date", "Time", "CameraID"}

// Ledger appends attendance records to hourly-rotated CSV files. The active
// file is picked lazily from the record's wall-clock hour; a header row is
// written when a file is first created. Safe for concurrent use.
type Ledger struct {
	mu          sync.Mutex
	dir         string
	currentHour string
	currentPath string
}

// NewLedger creates a ledger writing under dir.
func NewLedger(dir string) *Ledger {
	return &Ledger{dir: dir}
}

// Append writes one attendance row.
func (l *Ledger) Append(label, cameraID string, ts time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path, err := l.pathFor(ts)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open attendance ledger: %w", err)
	}

	w := csv.NewWriter(f)
	row := []string{
		label,
		ts.Format("2006-01-02"),
		ts.Format("15:04:05"),
		cameraID,
	}
	if err := w.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("failed to write attendance row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write attendance row: %w", err)
	}

	// A buffered row can still be lost in Close on a full disk; surface it.
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close attendance ledger: %w", err)
	}
	return nil
}

// pathFor resolves the ledger file for the record's hour, creating it with a
// header row on first use.
func (l *Ledger) pathFor(ts time.Time) (string, error) {
	hour := ts.Format("2006-01-02_15")
	if l.currentHour == hour && l.currentPath != "" {
		return l.currentPath, nil
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create attendance directory: %w", err)
	}

	path := filepath.Join(l.dir, fmt.Sprintf("attendance_%s-00.csv", hour))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return "", fmt.Errorf("failed to create attendance ledger: %w", err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(ledgerHeader); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write ledger header: %w", err)
		}
		w.Flush()
		if err := f.Close(); err != nil {
			return "", err
		}
		log.Infof("Started new attendance ledger %s", path)
	}

	l.currentHour = hour
	l.currentPath = path
	return path, nil
}
