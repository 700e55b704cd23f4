package scheduler

import (
	"fmt"
	"time"
)

// WindowID names the dedup window a sweep tick belongs to: the cadence in
// seconds plus the tick time floored to the cadence. Every tick that fires
// within the same window produces the same ID, so retried or overlapping
// ticks collapse onto one execution record per rule and lead.
func WindowID(cadence time.Duration, now time.Time) string {
	if cadence <= 0 {
		cadence = time.Hour
	}
	return fmt.Sprintf("%d-%d", int64(cadence/time.Second), now.UTC().Truncate(cadence).Unix())
}
