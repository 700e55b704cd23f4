// Package transport defines the request/response DTOs for the regions module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// UpsertRegionRequest creates or replaces a region definition.
type UpsertRegionRequest struct {
	Name            string      `json:"name" validate:"required,min=2,max=120"`
	AreaCodes       []string    `json:"areaCodes" validate:"required,min=1,dive,len=2,numeric"`
	States          []string    `json:"states" validate:"omitempty,dive,len=2,alpha"`
	Cities          []string    `json:"cities" validate:"omitempty,dive,min=2,max=120"`
	Strategy        string      `json:"distributionStrategy" validate:"required,oneof=ROUND_ROBIN PRIORITY AVAILABILITY MANUAL"`
	MemberBrokerIDs []uuid.UUID `json:"memberBrokerIds" validate:"omitempty,dive,uuid4|uuid"`
	Priority        int         `json:"priority" validate:"gte=0,lte=100"`
	RequiresDuty    bool        `json:"requiresDuty"`
}

// RegionResponse is the API representation of a region.
type RegionResponse struct {
	ID               uuid.UUID   `json:"id"`
	OrganizationID   uuid.UUID   `json:"organizationId"`
	Name             string      `json:"name"`
	AreaCodes        []string    `json:"areaCodes"`
	States           []string    `json:"states"`
	Cities           []string    `json:"cities"`
	Strategy         string      `json:"distributionStrategy"`
	MemberBrokerIDs  []uuid.UUID `json:"memberBrokerIds"`
	RoundRobinCursor int         `json:"roundRobinCursor"`
	Priority         int         `json:"priority"`
	RequiresDuty     bool        `json:"requiresDuty"`
	Active           bool        `json:"active"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// RegionListResponse wraps a list of regions.
type RegionListResponse struct {
	Items []RegionResponse `json:"items"`
}

// ResolveRequest asks the registry which region a phone number belongs to.
type ResolveRequest struct {
	Phone string `json:"phone" validate:"required,min=3,max=32"`
	City  string `json:"city" validate:"omitempty,max=120"`
}

// ResolveResponse carries the resolution outcome. RegionID is null when the
// number is valid but no region matched; Resolved is false in that case and
// when the number is too short to carry an area code.
type ResolveResponse struct {
	RegionID *uuid.UUID `json:"regionId"`
	AreaCode string     `json:"areaCode,omitempty"`
	Resolved bool       `json:"resolved"`
	Reason   string     `json:"reason,omitempty"`
}
