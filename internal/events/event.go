// Package events defines the domain events exchanged between modules.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event names. Subscribers register against these constants.
const (
	EventLeadCreated    = "lead.created"
	EventLeadAssigned   = "lead.assigned"
	EventStageChanged   = "lead.stage_changed"
	EventShiftActivated = "shift.activated"
	EventShiftFinalized = "shift.finalized"
	EventShiftCancelled = "shift.cancelled"
)

// LeadCreated is published synchronously after a lead has been persisted,
// whether or not distribution managed to assign a broker.
type LeadCreated struct {
	BaseEvent
	LeadID           uuid.UUID
	OrganizationID   uuid.UUID
	BoardID          uuid.UUID
	RegionID         *uuid.UUID
	AssignedBrokerID *uuid.UUID
	Phone            string
	Name             string
}

func (e LeadCreated) EventName() string { return EventLeadCreated }

// LeadAssigned is published after a successful distribution.
type LeadAssigned struct {
	BaseEvent
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	RegionID       uuid.UUID
	BrokerID       uuid.UUID
	Strategy       string
}

func (e LeadAssigned) EventName() string { return EventLeadAssigned }

// StageChanged is published synchronously when a lead moves between CRM stages.
type StageChanged struct {
	BaseEvent
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	BoardID        uuid.UUID
	FromStageID    *uuid.UUID
	ToStageID      uuid.UUID
	ActorID        uuid.UUID
}

func (e StageChanged) EventName() string { return EventStageChanged }

// ShiftActivated is published when a broker starts a duty shift.
type ShiftActivated struct {
	BaseEvent
	ShiftID        uuid.UUID
	BrokerID       uuid.UUID
	OrganizationID uuid.UUID
	StartedAt      time.Time
}

func (e ShiftActivated) EventName() string { return EventShiftActivated }

// ShiftFinalized is published when a broker completes a duty shift.
type ShiftFinalized struct {
	BaseEvent
	ShiftID        uuid.UUID
	BrokerID       uuid.UUID
	OrganizationID uuid.UUID
	EndedAt        time.Time
}

func (e ShiftFinalized) EventName() string { return EventShiftFinalized }

// ShiftCancelled is published when a shift is cancelled by an administrator
// or the owning broker.
type ShiftCancelled struct {
	BaseEvent
	ShiftID        uuid.UUID
	BrokerID       uuid.UUID
	OrganizationID uuid.UUID
	ActorID        uuid.UUID
}

func (e ShiftCancelled) EventName() string { return EventShiftCancelled }
