// Package transport defines the request/response DTOs for follow-ups.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateFollowUpRequest registers a follow-up task for a lead.
type CreateFollowUpRequest struct {
	LeadID   uuid.UUID  `json:"leadId" validate:"required"`
	BrokerID *uuid.UUID `json:"brokerId"`
	Title    string     `json:"title" validate:"required,max=200"`
	DueAt    time.Time  `json:"dueAt" validate:"required"`
}

// FollowUpResponse is the API representation of a follow-up task.
type FollowUpResponse struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	LeadID         uuid.UUID  `json:"leadId"`
	BrokerID       *uuid.UUID `json:"brokerId,omitempty"`
	Title          string     `json:"title"`
	DueAt          time.Time  `json:"dueAt"`
	Done           bool       `json:"done"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// FollowUpListResponse wraps a list of follow-ups.
type FollowUpListResponse struct {
	Items []FollowUpResponse `json:"items"`
}
