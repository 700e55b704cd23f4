// Package domain holds the duty shift invariants: time-window validation,
// overlap detection and the shift state machine. Pure logic, no I/O.
package domain

import (
	"fmt"
	"time"

	"plantao_backend/platform/apperr"
)

// Status is the lifecycle state of a duty shift.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// MinutesPerDay bounds the [start, end) window of a shift.
const MinutesPerDay = 24 * 60

// Window is a half-open [StartMinute, EndMinute) interval on a weekday.
// DayOfWeek follows ISO-8601: 1 = Monday .. 7 = Sunday.
type Window struct {
	DayOfWeek   int
	StartMinute int
	EndMinute   int
}

// Validate checks the structural invariants of a window.
func (w Window) Validate() error {
	if w.DayOfWeek < 1 || w.DayOfWeek > 7 {
		return apperr.Validation(fmt.Sprintf("dayOfWeek must be between 1 and 7, got %d", w.DayOfWeek))
	}
	if w.StartMinute < 0 || w.EndMinute > MinutesPerDay {
		return apperr.Validation("shift window must fall within a single day")
	}
	if w.StartMinute >= w.EndMinute {
		return apperr.Validation("shift start must be before shift end")
	}
	return nil
}

// Overlaps reports whether two windows on the same day intersect.
// Half-open comparison: touching endpoints do not conflict.
func (w Window) Overlaps(other Window) bool {
	if w.DayOfWeek != other.DayOfWeek {
		return false
	}
	return w.StartMinute < other.EndMinute && w.EndMinute > other.StartMinute
}

// Contains reports whether the instant t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if ISOWeekday(t) != w.DayOfWeek {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	return minute >= w.StartMinute && minute < w.EndMinute
}

// Blocking reports whether a shift in this status occupies its window for
// conflict detection purposes.
func (s Status) Blocking() bool {
	return s == StatusScheduled || s == StatusActive
}

// CanTransition reports whether the state machine allows moving from one
// status to another. Only adjacent transitions are legal:
// SCHEDULED -> ACTIVE -> COMPLETED, with CANCELLED reachable from
// SCHEDULED or ACTIVE.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusActive:
		return from == StatusScheduled
	case StatusCompleted:
		return from == StatusActive
	case StatusCancelled:
		return from == StatusScheduled || from == StatusActive
	default:
		return false
	}
}

// ISOWeekday returns the ISO-8601 weekday of t: 1 = Monday .. 7 = Sunday.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
