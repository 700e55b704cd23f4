// Package service contains the lead intake pipeline: phone normalization,
// region resolution, broker distribution and the synchronous event dispatch
// that feeds the automation engine.
package service

import (
	"context"
	"errors"
	"time"

	"plantao_backend/internal/distribution"
	"plantao_backend/internal/events"
	"plantao_backend/internal/leads/repository"
	"plantao_backend/internal/leads/transport"
	regionrepo "plantao_backend/internal/regions/repository"
	regionsvc "plantao_backend/internal/regions/service"
	"plantao_backend/platform/logger"
	"plantao_backend/platform/phone"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the leads service.
type Repository interface {
	Create(ctx context.Context, lead *repository.Lead) error
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (*repository.Lead, error)
	List(ctx context.Context, organizationID uuid.UUID, filter repository.Filter) ([]repository.Lead, error)
	SetRoutingStatus(ctx context.Context, id, organizationID uuid.UUID, status string) error
	Assign(ctx context.Context, id, organizationID, brokerID uuid.UUID, at time.Time) error
	MoveStage(ctx context.Context, id, organizationID, stageID uuid.UUID, at time.Time) error
	Touch(ctx context.Context, id, organizationID uuid.UUID, at time.Time) error
}

// Router resolves a phone number to a region.
type Router interface {
	Resolve(ctx context.Context, organizationID uuid.UUID, rawPhone, cityHint string) (*regionsvc.Resolution, error)
}

// RegionStore loads the full region aggregate for distribution.
type RegionStore interface {
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (*regionrepo.Region, error)
}

// Distributor selects and persists the broker assignment for a lead.
type Distributor interface {
	Assign(ctx context.Context, leadID uuid.UUID, region *regionrepo.Region, now time.Time) (uuid.UUID, error)
}

// Service handles lead operations.
type Service struct {
	repo        Repository
	router      Router
	regions     RegionStore
	distributor Distributor
	eventBus    events.Bus
	log         *logger.Logger
}

// New creates a new leads service.
func New(repo Repository, router Router, regions RegionStore, distributor Distributor, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:        repo,
		router:      router,
		regions:     regions,
		distributor: distributor,
		eventBus:    eventBus,
		log:         log,
	}
}

// Intake runs the full routing pipeline for an inbound lead: normalize the
// phone, resolve the region, distribute to a broker and persist. Resolution
// and distribution failures are non-fatal; the lead is kept with a flagged
// routing status for manual follow-up.
func (s *Service) Intake(ctx context.Context, organizationID uuid.UUID, req transport.IntakeLeadRequest) (transport.LeadResponse, error) {
	normalized := phone.NormalizeE164(req.Phone)

	routingStatus := repository.RoutingUnresolved
	var regionID *uuid.UUID
	resolution, err := s.router.Resolve(ctx, organizationID, req.Phone, req.City)
	switch {
	case errors.Is(err, regionsvc.ErrUnresolvableNumber):
		// Too short to carry an area code. Keep the lead, flag it.
	case err != nil:
		return transport.LeadResponse{}, err
	case resolution != nil:
		regionID = &resolution.RegionID
		routingStatus = repository.RoutingUnassigned
	}

	now := time.Now()
	lead := &repository.Lead{
		ID:                uuid.New(),
		OrganizationID:    organizationID,
		BoardID:           req.BoardID,
		StageID:           req.StageID,
		Name:              req.Name,
		Phone:             normalized,
		PhoneDigits:       phone.Digits(req.Phone),
		Email:             req.Email,
		Source:            req.Source,
		RegionID:          regionID,
		RoutingStatus:     routingStatus,
		LastInteractionAt: now,
		Temperature:       "COLD",
		Status:            repository.StatusOpen,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if city := req.City; city != "" {
		lead.City = &city
	}

	if err := s.repo.Create(ctx, lead); err != nil {
		return transport.LeadResponse{}, err
	}

	if regionID != nil {
		if err := s.distribute(ctx, lead, now); err != nil {
			return transport.LeadResponse{}, err
		}
	} else {
		s.log.LeadUnassigned(lead.ID.String(), "unresolved region")
	}

	if err := s.eventBus.PublishSync(ctx, events.LeadCreated{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           lead.ID,
		OrganizationID:   organizationID,
		BoardID:          lead.BoardID,
		RegionID:         lead.RegionID,
		AssignedBrokerID: lead.AssignedBrokerID,
		Phone:            lead.Phone,
		Name:             lead.Name,
	}); err != nil {
		// Automation failures never fail the intake itself.
		s.log.Error("lead created dispatch failed", "lead_id", lead.ID.String(), "error", err)
	}

	return toLeadResponse(lead), nil
}

func (s *Service) distribute(ctx context.Context, lead *repository.Lead, now time.Time) error {
	region, err := s.regions.GetByID(ctx, *lead.RegionID, lead.OrganizationID)
	if err != nil {
		return err
	}

	brokerID, err := s.distributor.Assign(ctx, lead.ID, region, now)
	switch {
	case errors.Is(err, distribution.ErrNoEligibleBroker):
		s.log.LeadUnassigned(lead.ID.String(), "no eligible broker")
		return nil
	case errors.Is(err, distribution.ErrManualAssignmentRequired):
		s.log.LeadUnassigned(lead.ID.String(), "manual assignment required")
		lead.RoutingStatus = repository.RoutingManualRequired
		return s.repo.SetRoutingStatus(ctx, lead.ID, lead.OrganizationID, repository.RoutingManualRequired)
	case err != nil:
		return err
	}

	lead.AssignedBrokerID = &brokerID
	lead.DistributionTimestamp = &now
	lead.RoutingStatus = repository.RoutingAssigned
	s.log.LeadAssigned(lead.ID.String(), brokerID.String(), region.ID.String(), region.Strategy)

	s.eventBus.Publish(ctx, events.LeadAssigned{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		RegionID:       region.ID,
		BrokerID:       brokerID,
		Strategy:       region.Strategy,
	})

	return nil
}

// AssignManually routes a flagged lead to a broker chosen by an operator.
func (s *Service) AssignManually(ctx context.Context, id, organizationID uuid.UUID, req transport.ManualAssignRequest) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	now := time.Now()
	if err := s.repo.Assign(ctx, id, organizationID, req.BrokerID, now); err != nil {
		return transport.LeadResponse{}, err
	}

	lead.AssignedBrokerID = &req.BrokerID
	lead.DistributionTimestamp = &now
	lead.RoutingStatus = repository.RoutingAssigned

	regionID := uuid.Nil
	if lead.RegionID != nil {
		regionID = *lead.RegionID
	}
	s.eventBus.Publish(ctx, events.LeadAssigned{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		OrganizationID: organizationID,
		RegionID:       regionID,
		BrokerID:       req.BrokerID,
		Strategy:       regionrepo.StrategyManual,
	})

	return toLeadResponse(lead), nil
}

// MoveStage moves a lead between funnel stages and dispatches the stage
// change synchronously to automation subscribers.
func (s *Service) MoveStage(ctx context.Context, id, organizationID, actorID uuid.UUID, req transport.MoveStageRequest) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	fromStage := lead.StageID
	now := time.Now()
	if err := s.repo.MoveStage(ctx, id, organizationID, req.StageID, now); err != nil {
		return transport.LeadResponse{}, err
	}

	lead.StageID = req.StageID
	lead.LastInteractionAt = now

	if err := s.eventBus.PublishSync(ctx, events.StageChanged{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		OrganizationID: organizationID,
		BoardID:        lead.BoardID,
		FromStageID:    &fromStage,
		ToStageID:      req.StageID,
		ActorID:        actorID,
	}); err != nil {
		s.log.Error("stage change dispatch failed", "lead_id", lead.ID.String(), "error", err)
	}

	return toLeadResponse(lead), nil
}

// Touch records an interaction with the lead, resetting inactivity timers.
func (s *Service) Touch(ctx context.Context, id, organizationID uuid.UUID) error {
	return s.repo.Touch(ctx, id, organizationID, time.Now())
}

// GetByID returns a single lead.
func (s *Service) GetByID(ctx context.Context, id, organizationID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(lead), nil
}

// List returns the organization's leads with optional filters.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID, filter repository.Filter) (transport.LeadListResponse, error) {
	leads, err := s.repo.List(ctx, organizationID, filter)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, len(leads))
	for i := range leads {
		items[i] = toLeadResponse(&leads[i])
	}
	return transport.LeadListResponse{Items: items}, nil
}

func toLeadResponse(lead *repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                    lead.ID,
		OrganizationID:        lead.OrganizationID,
		BoardID:               lead.BoardID,
		StageID:               lead.StageID,
		Name:                  lead.Name,
		Phone:                 lead.Phone,
		Email:                 lead.Email,
		City:                  lead.City,
		Source:                lead.Source,
		RegionID:              lead.RegionID,
		AssignedBrokerID:      lead.AssignedBrokerID,
		RoutingStatus:         lead.RoutingStatus,
		DistributionTimestamp: lead.DistributionTimestamp,
		LastInteractionAt:     lead.LastInteractionAt,
		Temperature:           lead.Temperature,
		Status:                lead.Status,
		Tags:                  lead.Tags,
		CreatedAt:             lead.CreatedAt,
	}
}
