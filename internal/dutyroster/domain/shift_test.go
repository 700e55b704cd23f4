package domain

import (
	"testing"
	"time"
)

func TestWindowValidate(t *testing.T) {
	tests := []struct {
		name    string
		window  Window
		wantErr bool
	}{
		{name: "valid", window: Window{DayOfWeek: 2, StartMinute: 600, EndMinute: 720}},
		{name: "full day", window: Window{DayOfWeek: 7, StartMinute: 0, EndMinute: MinutesPerDay}},
		{name: "day too low", window: Window{DayOfWeek: 0, StartMinute: 600, EndMinute: 720}, wantErr: true},
		{name: "day too high", window: Window{DayOfWeek: 8, StartMinute: 600, EndMinute: 720}, wantErr: true},
		{name: "start equals end", window: Window{DayOfWeek: 2, StartMinute: 600, EndMinute: 600}, wantErr: true},
		{name: "start after end", window: Window{DayOfWeek: 2, StartMinute: 720, EndMinute: 600}, wantErr: true},
		{name: "end past midnight", window: Window{DayOfWeek: 2, StartMinute: 600, EndMinute: MinutesPerDay + 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.window.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestWindowOverlaps(t *testing.T) {
	base := Window{DayOfWeek: 2, StartMinute: 600, EndMinute: 720} // Tue 10:00-12:00

	tests := []struct {
		name  string
		other Window
		want  bool
	}{
		{name: "contained", other: Window{DayOfWeek: 2, StartMinute: 630, EndMinute: 690}, want: true},
		{name: "partial overlap", other: Window{DayOfWeek: 2, StartMinute: 660, EndMinute: 780}, want: true},
		{name: "identical", other: Window{DayOfWeek: 2, StartMinute: 600, EndMinute: 720}, want: true},
		{name: "touching end is free", other: Window{DayOfWeek: 2, StartMinute: 720, EndMinute: 780}, want: false},
		{name: "touching start is free", other: Window{DayOfWeek: 2, StartMinute: 540, EndMinute: 600}, want: false},
		{name: "other day", other: Window{DayOfWeek: 3, StartMinute: 600, EndMinute: 720}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Overlaps(tt.other); got != tt.want {
				t.Fatalf("Overlaps(%+v) = %v, want %v", tt.other, got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.other.Overlaps(base); got != tt.want {
				t.Fatalf("reverse Overlaps(%+v) = %v, want %v", base, got, tt.want)
			}
		})
	}
}

func TestWindowContains(t *testing.T) {
	window := Window{DayOfWeek: 2, StartMinute: 600, EndMinute: 720}

	// 2026-09-01 is a Tuesday.
	tuesday := time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC)
	if !window.Contains(tuesday) {
		t.Fatal("expected Tuesday 11:00 to be on duty")
	}

	atEnd := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	if window.Contains(atEnd) {
		t.Fatal("window end is exclusive")
	}

	wednesday := time.Date(2026, 9, 2, 11, 0, 0, 0, time.UTC)
	if window.Contains(wednesday) {
		t.Fatal("expected Wednesday to be off duty")
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusScheduled, StatusActive, true},
		{StatusActive, StatusCompleted, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusActive, StatusCancelled, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusActive, StatusActive, false},
		{StatusCompleted, StatusActive, false},
		{StatusCancelled, StatusActive, false},
		{StatusCompleted, StatusCancelled, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
