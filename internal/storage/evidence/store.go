package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nileshkowe/vision-hub/internal/core/pipeline"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Category selects the directory an evidence image is filed under.
type Category string

const (
	// CategoryMatched holds crops of confirmed known identities.
	CategoryMatched Category = "matched"
	// CategoryUnknown holds crops of unrecognized faces.
	CategoryUnknown Category = "unknown"
)

// Store persists face crops as JPEG files under category directories.
type Store struct {
	dirs map[Category]string
}

// NewStore creates a store writing matched and unknown evidence under the
// given directories.
func NewStore(matchedDir, unknownDir string) *Store {
	return &Store{
		dirs: map[Category]string{
			CategoryMatched: matchedDir,
			CategoryUnknown: unknownDir,
		},
	}
}

// Save writes the crop under the category directory and returns the generated
// filename (not the full path; the reporting boundary reconstructs paths).
// Collisions within the same second for the same camera and label overwrite
// the previous file.
func (s *Store) Save(img gocv.Mat, category Category, label string, ts time.Time, cameraID string) (string, error) {
	dir, ok := s.dirs[category]
	if !ok {
		return "", fmt.Errorf("unknown evidence category %q", category)
	}
	if img.Empty() {
		return "", fmt.Errorf("refusing to save empty image for %s/%s", cameraID, label)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evidence directory: %w", err)
	}

	filename := Filename(cameraID, label, ts)
	path := filepath.Join(dir, filename)
	if ok := gocv.IMWrite(path, img); !ok {
		return "", fmt.Errorf("failed to write evidence image %s", path)
	}

	log.Debugf("Saved %s evidence %s", category, filename)
	return filename, nil
}

// Filename builds the deterministic evidence filename for a detection:
// {camera}_{label}_{timestamp}.jpg with colons and spaces made filesystem
// safe.
func Filename(cameraID, label string, ts time.Time) string {
	stamp := ts.Format(pipeline.TimestampLayout)
	stamp = strings.ReplaceAll(stamp, ":", "-")
	stamp = strings.ReplaceAll(stamp, " ", "_")
	return fmt.Sprintf("%s_%s_%s.jpg", cameraID, label, stamp)
}
