// Package service contains the duty roster business logic: shift scheduling
// with conflict detection, the activation state machine and the on-duty query
// consumed by the distribution engine.
package service

import (
	"context"
	"time"

	brokerrepo "plantao_backend/internal/brokers/repository"
	"plantao_backend/internal/dutyroster/domain"
	"plantao_backend/internal/dutyroster/repository"
	"plantao_backend/internal/dutyroster/transport"
	"plantao_backend/internal/events"
	"plantao_backend/platform/apperr"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the roster service.
type Repository interface {
	Create(ctx context.Context, shift *repository.DutyShift) error
	Update(ctx context.Context, shift *repository.DutyShift) error
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (*repository.DutyShift, error)
	ListBlockingForBroker(ctx context.Context, brokerID, organizationID uuid.UUID) ([]repository.DutyShift, error)
	ListForOrganization(ctx context.Context, organizationID uuid.UUID, brokerID *uuid.UUID) ([]repository.DutyShift, error)
	TransitionStatus(ctx context.Context, id, organizationID uuid.UUID, from, to domain.Status) (bool, error)
	ListOnDuty(ctx context.Context, organizationID uuid.UUID, dayOfWeek, minuteOfDay int) ([]repository.OnDutyBroker, error)
}

// BrokerPresence is the slice of the brokers module the roster needs:
// flipping availability when a shift is activated.
type BrokerPresence interface {
	SetAvailability(ctx context.Context, id, organizationID uuid.UUID, status string) error
}

// Actor identifies who is performing a roster operation.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

// Service handles duty roster operations.
type Service struct {
	repo     Repository
	presence BrokerPresence
	eventBus events.Bus
}

// New creates a new duty roster service.
func New(repo Repository, presence BrokerPresence, eventBus events.Bus) *Service {
	return &Service{repo: repo, presence: presence, eventBus: eventBus}
}

// CreateShift schedules a new shift after validating its window and checking
// for overlaps against the broker's other SCHEDULED/ACTIVE shifts. On
// conflict nothing is persisted and the colliding shift id is returned in
// the error details.
func (s *Service) CreateShift(ctx context.Context, organizationID uuid.UUID, actor Actor, req transport.CreateShiftRequest) (transport.ShiftResponse, error) {
	if !actor.IsAdmin && actor.ID != req.BrokerID {
		return transport.ShiftResponse{}, apperr.Forbidden("brokers can only schedule their own shifts")
	}

	window, err := parseWindow(req.DayOfWeek, req.StartTime, req.EndTime)
	if err != nil {
		return transport.ShiftResponse{}, err
	}

	if err := s.checkOverlap(ctx, req.BrokerID, organizationID, window, uuid.Nil); err != nil {
		return transport.ShiftResponse{}, err
	}

	receivesLeads := true
	if req.ReceivesLeads != nil {
		receivesLeads = *req.ReceivesLeads
	}

	now := time.Now()
	shift := &repository.DutyShift{
		ID:             uuid.New(),
		BrokerID:       req.BrokerID,
		OrganizationID: organizationID,
		DayOfWeek:      window.DayOfWeek,
		StartMinute:    window.StartMinute,
		EndMinute:      window.EndMinute,
		Priority:       req.Priority,
		ReceivesLeads:  receivesLeads,
		Status:         domain.StatusScheduled,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, shift); err != nil {
		return transport.ShiftResponse{}, err
	}

	return toShiftResponse(shift), nil
}

// UpdateShift patches a shift, re-running overlap validation whenever the
// window or the broker changes.
func (s *Service) UpdateShift(ctx context.Context, id, organizationID uuid.UUID, actor Actor, req transport.UpdateShiftRequest) (transport.ShiftResponse, error) {
	shift, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		return transport.ShiftResponse{}, err
	}

	if !actor.IsAdmin && actor.ID != shift.BrokerID {
		return transport.ShiftResponse{}, apperr.Forbidden("brokers can only edit their own shifts")
	}

	if !shift.Status.Blocking() {
		return transport.ShiftResponse{}, apperr.InvalidTransition("only scheduled or active shifts can be edited")
	}

	windowChanged := false
	if req.BrokerID != nil && *req.BrokerID != shift.BrokerID {
		shift.BrokerID = *req.BrokerID
		windowChanged = true
	}
	if req.DayOfWeek != nil && *req.DayOfWeek != shift.DayOfWeek {
		shift.DayOfWeek = *req.DayOfWeek
		windowChanged = true
	}
	if req.StartTime != nil {
		minute, err := transport.ParseMinute(*req.StartTime)
		if err != nil {
			return transport.ShiftResponse{}, apperr.Validation(err.Error())
		}
		if minute != shift.StartMinute {
			shift.StartMinute = minute
			windowChanged = true
		}
	}
	if req.EndTime != nil {
		minute, err := transport.ParseMinute(*req.EndTime)
		if err != nil {
			return transport.ShiftResponse{}, apperr.Validation(err.Error())
		}
		if minute != shift.EndMinute {
			shift.EndMinute = minute
			windowChanged = true
		}
	}
	if req.Priority != nil {
		shift.Priority = *req.Priority
	}
	if req.ReceivesLeads != nil {
		shift.ReceivesLeads = *req.ReceivesLeads
	}

	if windowChanged {
		window := shift.Window()
		if err := window.Validate(); err != nil {
			return transport.ShiftResponse{}, err
		}
		if err := s.checkOverlap(ctx, shift.BrokerID, organizationID, window, shift.ID); err != nil {
			return transport.ShiftResponse{}, err
		}
	}

	shift.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, shift); err != nil {
		return transport.ShiftResponse{}, err
	}

	return toShiftResponse(shift), nil
}

// Activate moves a SCHEDULED shift to ACTIVE. Only the owning broker can
// activate, and activation flips the broker's availability to AVAILABLE.
func (s *Service) Activate(ctx context.Context, id, organizationID uuid.UUID, actor Actor) (transport.ShiftResponse, error) {
	shift, err := s.transition(ctx, id, organizationID, actor, domain.StatusActive, false)
	if err != nil {
		return transport.ShiftResponse{}, err
	}

	if err := s.presence.SetAvailability(ctx, shift.BrokerID, organizationID, brokerrepo.AvailabilityAvailable); err != nil {
		return transport.ShiftResponse{}, err
	}

	s.eventBus.Publish(ctx, events.ShiftActivated{
		BaseEvent:      events.NewBaseEvent(),
		ShiftID:        shift.ID,
		BrokerID:       shift.BrokerID,
		OrganizationID: organizationID,
		StartedAt:      time.Now(),
	})

	return toShiftResponse(shift), nil
}

// Finalize moves an ACTIVE shift to COMPLETED. Availability is deliberately
// left untouched; presence management decides what the broker does next.
func (s *Service) Finalize(ctx context.Context, id, organizationID uuid.UUID, actor Actor) (transport.ShiftResponse, error) {
	shift, err := s.transition(ctx, id, organizationID, actor, domain.StatusCompleted, false)
	if err != nil {
		return transport.ShiftResponse{}, err
	}

	s.eventBus.Publish(ctx, events.ShiftFinalized{
		BaseEvent:      events.NewBaseEvent(),
		ShiftID:        shift.ID,
		BrokerID:       shift.BrokerID,
		OrganizationID: organizationID,
		EndedAt:        time.Now(),
	})

	return toShiftResponse(shift), nil
}

// Cancel moves a SCHEDULED or ACTIVE shift to CANCELLED. Allowed for an
// administrator or the owning broker.
func (s *Service) Cancel(ctx context.Context, id, organizationID uuid.UUID, actor Actor) (transport.ShiftResponse, error) {
	shift, err := s.transition(ctx, id, organizationID, actor, domain.StatusCancelled, true)
	if err != nil {
		return transport.ShiftResponse{}, err
	}

	s.eventBus.Publish(ctx, events.ShiftCancelled{
		BaseEvent:      events.NewBaseEvent(),
		ShiftID:        shift.ID,
		BrokerID:       shift.BrokerID,
		OrganizationID: organizationID,
		ActorID:        actor.ID,
	})

	return toShiftResponse(shift), nil
}

// List returns the organization's shifts, optionally for a single broker.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID, brokerID *uuid.UUID) (transport.ShiftListResponse, error) {
	shifts, err := s.repo.ListForOrganization(ctx, organizationID, brokerID)
	if err != nil {
		return transport.ShiftListResponse{}, err
	}

	items := make([]transport.ShiftResponse, len(shifts))
	for i := range shifts {
		items[i] = toShiftResponse(&shifts[i])
	}
	return transport.ShiftListResponse{Items: items}, nil
}

// CurrentOnDuty returns brokers with an ACTIVE lead-receiving shift covering
// now, ordered by shift priority descending.
func (s *Service) CurrentOnDuty(ctx context.Context, organizationID uuid.UUID, now time.Time) ([]repository.OnDutyBroker, error) {
	return s.repo.ListOnDuty(ctx, organizationID, domain.ISOWeekday(now), now.Hour()*60+now.Minute())
}

func (s *Service) transition(ctx context.Context, id, organizationID uuid.UUID, actor Actor, target domain.Status, adminMayAct bool) (*repository.DutyShift, error) {
	shift, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		return nil, err
	}

	owner := actor.ID == shift.BrokerID
	if !owner && !(adminMayAct && actor.IsAdmin) {
		return nil, apperr.Forbidden("not allowed to change this shift")
	}

	if !domain.CanTransition(shift.Status, target) {
		return nil, apperr.InvalidTransition(
			"cannot move shift from " + string(shift.Status) + " to " + string(target))
	}

	ok, err := s.repo.TransitionStatus(ctx, id, organizationID, shift.Status, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race against a concurrent transition.
		return nil, apperr.InvalidTransition("shift status changed concurrently")
	}

	shift.Status = target
	return shift, nil
}

func (s *Service) checkOverlap(ctx context.Context, brokerID, organizationID uuid.UUID, window domain.Window, excludeID uuid.UUID) error {
	existing, err := s.repo.ListBlockingForBroker(ctx, brokerID, organizationID)
	if err != nil {
		return err
	}

	for i := range existing {
		if existing[i].ID == excludeID {
			continue
		}
		if window.Overlaps(existing[i].Window()) {
			return apperr.Conflict("shift window overlaps an existing shift").
				WithDetails(map[string]string{"conflictingShiftId": existing[i].ID.String()})
		}
	}

	return nil
}

func parseWindow(dayOfWeek int, startTime, endTime string) (domain.Window, error) {
	start, err := transport.ParseMinute(startTime)
	if err != nil {
		return domain.Window{}, apperr.Validation(err.Error())
	}
	end, err := transport.ParseMinute(endTime)
	if err != nil {
		return domain.Window{}, apperr.Validation(err.Error())
	}

	window := domain.Window{DayOfWeek: dayOfWeek, StartMinute: start, EndMinute: end}
	if err := window.Validate(); err != nil {
		return domain.Window{}, err
	}
	return window, nil
}

func toShiftResponse(shift *repository.DutyShift) transport.ShiftResponse {
	return transport.ShiftResponse{
		ID:             shift.ID,
		BrokerID:       shift.BrokerID,
		OrganizationID: shift.OrganizationID,
		DayOfWeek:      shift.DayOfWeek,
		StartTime:      transport.FormatMinute(shift.StartMinute),
		EndTime:        transport.FormatMinute(shift.EndMinute),
		Priority:       shift.Priority,
		ReceivesLeads:  shift.ReceivesLeads,
		Status:         string(shift.Status),
		CreatedAt:      shift.CreatedAt,
	}
}
