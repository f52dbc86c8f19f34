package timezone

import (
	"testing"
	"time"
)

func TestInitialize(t *testing.T) {
	t.Run("explicit name", func(t *testing.T) {
		Initialize("Europe/Berlin")
		if currentLocation.String() != "Europe/Berlin" {
			t.Errorf("location = %s, want Europe/Berlin", currentLocation)
		}
	})

	t.Run("invalid name falls back to UTC", func(t *testing.T) {
		Initialize("Not/AZone")
		if currentLocation != time.UTC {
			t.Errorf("location = %s, want UTC", currentLocation)
		}
	})

	t.Run("explicit name overrides TZ env", func(t *testing.T) {
		t.Setenv("TZ", "America/New_York")
		Initialize("Asia/Kolkata")
		if currentLocation.String() != "Asia/Kolkata" {
			t.Errorf("location = %s, want Asia/Kolkata", currentLocation)
		}
	})

	t.Run("empty name uses TZ env", func(t *testing.T) {
		t.Setenv("TZ", "America/New_York")
		Initialize("")
		if currentLocation.String() != "America/New_York" {
			t.Errorf("location = %s, want America/New_York", currentLocation)
		}
	})
}

func TestFormat(t *testing.T) {
	Initialize("UTC")
	ts := time.Date(2025, 6, 10, 9, 15, 30, 0, time.UTC)
	if got := Format(ts, "2006-01-02 15:04:05"); got != "2025-06-10 09:15:30" {
		t.Errorf("Format = %q", got)
	}
}
