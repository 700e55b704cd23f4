// Package transport defines the request/response DTOs for the brokers module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateBrokerRequest is the payload for registering a broker.
type CreateBrokerRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=8,max=20"`
	Role  string `json:"role" validate:"required,oneof=admin broker"`
}

// SetAvailabilityRequest updates a broker's presence status.
type SetAvailabilityRequest struct {
	Status string `json:"status" validate:"required,oneof=AVAILABLE BUSY OFFLINE"`
}

// BrokerResponse is the API representation of a broker.
type BrokerResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Availability   string    `json:"availabilityStatus"`
	Role           string    `json:"role"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
}

// BrokerListResponse wraps a list of brokers.
type BrokerListResponse struct {
	Items []BrokerResponse `json:"items"`
}
