// Package transport defines the request/response DTOs for the duty roster.
package transport

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateShiftRequest schedules a new duty shift. Times use "HH:MM" on a
// 24-hour clock; the window is half-open, so end 12:00 means the shift is
// over at noon sharp.
type CreateShiftRequest struct {
	BrokerID      uuid.UUID `json:"brokerId" validate:"required"`
	DayOfWeek     int       `json:"dayOfWeek" validate:"required,gte=1,lte=7"`
	StartTime     string    `json:"startTime" validate:"required"`
	EndTime       string    `json:"endTime" validate:"required"`
	Priority      int       `json:"priority" validate:"required,gte=1,lte=10"`
	ReceivesLeads *bool     `json:"receivesLeads"`
}

// UpdateShiftRequest patches a scheduled shift. Nil fields are left as-is.
type UpdateShiftRequest struct {
	BrokerID      *uuid.UUID `json:"brokerId"`
	DayOfWeek     *int       `json:"dayOfWeek" validate:"omitempty,gte=1,lte=7"`
	StartTime     *string    `json:"startTime"`
	EndTime       *string    `json:"endTime"`
	Priority      *int       `json:"priority" validate:"omitempty,gte=1,lte=10"`
	ReceivesLeads *bool      `json:"receivesLeads"`
}

// ShiftResponse is the API representation of a duty shift.
type ShiftResponse struct {
	ID             uuid.UUID `json:"id"`
	BrokerID       uuid.UUID `json:"brokerId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	DayOfWeek      int       `json:"dayOfWeek"`
	StartTime      string    `json:"startTime"`
	EndTime        string    `json:"endTime"`
	Priority       int       `json:"priority"`
	ReceivesLeads  bool      `json:"receivesLeads"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ShiftListResponse wraps a list of shifts.
type ShiftListResponse struct {
	Items []ShiftResponse `json:"items"`
}

// OnDutyResponse lists brokers currently eligible to receive leads.
type OnDutyResponse struct {
	BrokerIDs []uuid.UUID `json:"brokerIds"`
}

// ParseMinute converts an "HH:MM" clock string to minutes since midnight.
func ParseMinute(value string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(value, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	return h*60 + m, nil
}

// FormatMinute converts minutes since midnight back to "HH:MM".
func FormatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
