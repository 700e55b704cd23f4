// Package transport defines the request/response DTOs for leads.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// IntakeLeadRequest is the payload accepted on the public intake endpoint.
// City is an optional hint used as the last region-matching criterion.
type IntakeLeadRequest struct {
	OrganizationID uuid.UUID `json:"organizationId" validate:"required"`

	Name    string    `json:"name" validate:"required,min=2,max=200"`
	Phone   string    `json:"phone" validate:"required"`
	Email   *string   `json:"email" validate:"omitempty,email"`
	City    string    `json:"city"`
	Source  string    `json:"source" validate:"omitempty,max=100"`
	BoardID uuid.UUID `json:"boardId" validate:"required"`
	StageID uuid.UUID `json:"stageId" validate:"required"`
}

// MoveStageRequest moves a lead to another funnel stage.
type MoveStageRequest struct {
	StageID uuid.UUID `json:"stageId" validate:"required"`
}

// ManualAssignRequest routes a flagged lead to a broker by hand.
type ManualAssignRequest struct {
	BrokerID uuid.UUID `json:"brokerId" validate:"required"`
}

// LeadResponse is the API representation of a lead.
type LeadResponse struct {
	ID                    uuid.UUID  `json:"id"`
	OrganizationID        uuid.UUID  `json:"organizationId"`
	BoardID               uuid.UUID  `json:"boardId"`
	StageID               uuid.UUID  `json:"stageId"`
	Name                  string     `json:"name"`
	Phone                 string     `json:"phone"`
	Email                 *string    `json:"email,omitempty"`
	City                  *string    `json:"city,omitempty"`
	Source                string     `json:"source,omitempty"`
	RegionID              *uuid.UUID `json:"regionId,omitempty"`
	AssignedBrokerID      *uuid.UUID `json:"assignedBrokerId,omitempty"`
	RoutingStatus         string     `json:"routingStatus"`
	DistributionTimestamp *time.Time `json:"distributionTimestamp,omitempty"`
	LastInteractionAt     time.Time  `json:"lastInteractionAt"`
	Temperature           string     `json:"temperature"`
	Status                string     `json:"status"`
	Tags                  []string   `json:"tags,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// LeadListResponse wraps a list of leads.
type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
}
