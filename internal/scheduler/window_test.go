package scheduler

import (
	"strconv"
	"testing"
	"time"
)

func TestWindowIDFloorsToCadence(t *testing.T) {
	base := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		cadence time.Duration
		at      time.Time
		want    string
	}{
		{
			name:    "hourly window floors to top of hour",
			cadence: time.Hour,
			at:      base.Add(37 * time.Minute),
			want:    "3600-" + unixStr(base),
		},
		{
			name:    "exact boundary maps to itself",
			cadence: time.Hour,
			at:      base,
			want:    "3600-" + unixStr(base),
		},
		{
			name:    "quarter hour window",
			cadence: 15 * time.Minute,
			at:      base.Add(22 * time.Minute),
			want:    "900-" + unixStr(base.Add(15*time.Minute)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WindowID(tt.cadence, tt.at)
			if got != tt.want {
				t.Fatalf("WindowID(%v, %v) = %q, want %q", tt.cadence, tt.at, got, tt.want)
			}
		})
	}
}

func TestWindowIDStableWithinWindow(t *testing.T) {
	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	first := WindowID(time.Hour, base.Add(5*time.Minute))
	second := WindowID(time.Hour, base.Add(55*time.Minute))
	if first != second {
		t.Fatalf("same window produced different IDs: %q vs %q", first, second)
	}

	next := WindowID(time.Hour, base.Add(65*time.Minute))
	if next == first {
		t.Fatalf("next window reused ID %q", first)
	}
}

func TestWindowIDCadencesDoNotCollide(t *testing.T) {
	at := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	hourly := WindowID(time.Hour, at)
	urgent := WindowID(15*time.Minute, at)
	if hourly == urgent {
		t.Fatalf("different cadences produced the same window ID %q", hourly)
	}
}

func TestWindowIDZeroCadenceDefaultsToHour(t *testing.T) {
	at := time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC)
	if got, want := WindowID(0, at), WindowID(time.Hour, at); got != want {
		t.Fatalf("WindowID(0) = %q, want hourly %q", got, want)
	}
}

func unixStr(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
