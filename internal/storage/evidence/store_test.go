package evidence

import (
	"testing"
	"time"
)

func TestFilename(t *testing.T) {
	ts := time.Date(2025, 6, 10, 9, 15, 30, 0, time.UTC)

	tests := []struct {
		name     string
		cameraID string
		label    string
		expected string
	}{
		{
			name:     "known identity",
			cameraID: "cam1",
			label:    "Alice",
			expected: "cam1_Alice_2025-06-10_09-15-30.jpg",
		},
		{
			name:     "unknown face",
			cameraID: "entrance",
			label:    "Unknown",
			expected: "entrance_Unknown_2025-06-10_09-15-30.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(tt.cameraID, tt.label, ts)
			if got != tt.expected {
				t.Errorf("Filename(%q, %q) = %q, want %q", tt.cameraID, tt.label, got, tt.expected)
			}
		})
	}
}

func TestFilenameDeterministic(t *testing.T) {
	ts := time.Date(2025, 6, 10, 14, 0, 5, 0, time.UTC)
	a := Filename("cam1", "Alice", ts)
	b := Filename("cam1", "Alice", ts)
	if a != b {
		t.Errorf("same inputs produced %q and %q", a, b)
	}
}
