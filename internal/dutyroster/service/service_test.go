package service

import (
	"context"
	"testing"
	"time"

	"plantao_backend/internal/dutyroster/domain"
	"plantao_backend/internal/dutyroster/repository"
	"plantao_backend/internal/dutyroster/transport"
	"plantao_backend/internal/events"
	"plantao_backend/platform/apperr"

	"github.com/google/uuid"
)

// stubRepo is an in-memory Repository mirroring the optimistic transition
// semantics of the SQL implementation.
type stubRepo struct {
	shifts map[uuid.UUID]*repository.DutyShift
}

func newStubRepo() *stubRepo {
	return &stubRepo{shifts: make(map[uuid.UUID]*repository.DutyShift)}
}

func (s *stubRepo) Create(_ context.Context, shift *repository.DutyShift) error {
	copied := *shift
	s.shifts[shift.ID] = &copied
	return nil
}

func (s *stubRepo) Update(_ context.Context, shift *repository.DutyShift) error {
	copied := *shift
	s.shifts[shift.ID] = &copied
	return nil
}

func (s *stubRepo) GetByID(_ context.Context, id, organizationID uuid.UUID) (*repository.DutyShift, error) {
	shift, ok := s.shifts[id]
	if !ok || shift.OrganizationID != organizationID {
		return nil, apperr.NotFound("shift not found")
	}
	copied := *shift
	return &copied, nil
}

func (s *stubRepo) ListBlockingForBroker(_ context.Context, brokerID, organizationID uuid.UUID) ([]repository.DutyShift, error) {
	var out []repository.DutyShift
	for _, shift := range s.shifts {
		if shift.BrokerID == brokerID && shift.OrganizationID == organizationID && shift.Status.Blocking() {
			out = append(out, *shift)
		}
	}
	return out, nil
}

func (s *stubRepo) ListForOrganization(_ context.Context, organizationID uuid.UUID, brokerID *uuid.UUID) ([]repository.DutyShift, error) {
	var out []repository.DutyShift
	for _, shift := range s.shifts {
		if shift.OrganizationID != organizationID {
			continue
		}
		if brokerID != nil && shift.BrokerID != *brokerID {
			continue
		}
		out = append(out, *shift)
	}
	return out, nil
}

func (s *stubRepo) TransitionStatus(_ context.Context, id, organizationID uuid.UUID, from, to domain.Status) (bool, error) {
	shift, ok := s.shifts[id]
	if !ok || shift.OrganizationID != organizationID || shift.Status != from {
		return false, nil
	}
	shift.Status = to
	shift.Version++
	return true, nil
}

func (s *stubRepo) ListOnDuty(_ context.Context, organizationID uuid.UUID, dayOfWeek, minuteOfDay int) ([]repository.OnDutyBroker, error) {
	var out []repository.OnDutyBroker
	for _, shift := range s.shifts {
		if shift.OrganizationID != organizationID || shift.Status != domain.StatusActive || !shift.ReceivesLeads {
			continue
		}
		window := shift.Window()
		if window.DayOfWeek == dayOfWeek && minuteOfDay >= window.StartMinute && minuteOfDay < window.EndMinute {
			out = append(out, repository.OnDutyBroker{BrokerID: shift.BrokerID, Priority: shift.Priority})
		}
	}
	return out, nil
}

type stubPresence struct {
	statuses map[uuid.UUID]string
}

func (s *stubPresence) SetAvailability(_ context.Context, id, _ uuid.UUID, status string) error {
	if s.statuses == nil {
		s.statuses = make(map[uuid.UUID]string)
	}
	s.statuses[id] = status
	return nil
}

func newTestService() (*Service, *stubRepo, *stubPresence) {
	repo := newStubRepo()
	presence := &stubPresence{}
	return New(repo, presence, events.NewInMemoryBus(nil)), repo, presence
}

func createReq(brokerID uuid.UUID, day int, start, end string) transport.CreateShiftRequest {
	return transport.CreateShiftRequest{
		BrokerID:  brokerID,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
		Priority:  5,
	}
}

func TestCreateShiftRejectsOverlap(t *testing.T) {
	svc, repo, _ := newTestService()
	orgID := uuid.New()
	brokerID := uuid.New()
	actor := Actor{ID: brokerID}

	if _, err := svc.CreateShift(context.Background(), orgID, actor, createReq(brokerID, 2, "11:00", "13:00")); err != nil {
		t.Fatalf("first shift should succeed: %v", err)
	}

	_, err := svc.CreateShift(context.Background(), orgID, actor, createReq(brokerID, 2, "10:00", "12:00"))
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	if len(repo.shifts) != 1 {
		t.Fatalf("conflicting shift must not be persisted, have %d shifts", len(repo.shifts))
	}
}

func TestCreateShiftTouchingEndpointsDoNotConflict(t *testing.T) {
	svc, repo, _ := newTestService()
	orgID := uuid.New()
	brokerID := uuid.New()
	actor := Actor{ID: brokerID}

	if _, err := svc.CreateShift(context.Background(), orgID, actor, createReq(brokerID, 2, "09:00", "10:00")); err != nil {
		t.Fatalf("first shift should succeed: %v", err)
	}
	if _, err := svc.CreateShift(context.Background(), orgID, actor, createReq(brokerID, 2, "10:00", "11:00")); err != nil {
		t.Fatalf("back-to-back shift should succeed: %v", err)
	}

	if len(repo.shifts) != 2 {
		t.Fatalf("expected both shifts persisted, have %d", len(repo.shifts))
	}
}

func TestCreateShiftDifferentBrokersMayOverlap(t *testing.T) {
	svc, _, _ := newTestService()
	orgID := uuid.New()
	admin := Actor{ID: uuid.New(), IsAdmin: true}

	if _, err := svc.CreateShift(context.Background(), orgID, admin, createReq(uuid.New(), 2, "10:00", "12:00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CreateShift(context.Background(), orgID, admin, createReq(uuid.New(), 2, "10:00", "12:00")); err != nil {
		t.Fatalf("overlap across brokers must be allowed: %v", err)
	}
}

func TestCreateShiftValidatesWindow(t *testing.T) {
	svc, _, _ := newTestService()
	orgID := uuid.New()
	brokerID := uuid.New()
	actor := Actor{ID: brokerID}

	_, err := svc.CreateShift(context.Background(), orgID, actor, createReq(brokerID, 2, "12:00", "10:00"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for inverted window, got %v", err)
	}

	_, err = svc.CreateShift(context.Background(), orgID, actor, createReq(brokerID, 9, "10:00", "12:00"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for dayOfWeek 9, got %v", err)
	}
}

func TestFinalizeRequiresActiveShift(t *testing.T) {
	svc, _, _ := newTestService()
	orgID := uuid.New()
	brokerID := uuid.New()
	actor := Actor{ID: brokerID}

	created, err := svc.CreateShift(context.Background(), orgID, actor, createReq(brokerID, 2, "10:00", "12:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.Finalize(context.Background(), created.ID, orgID, actor)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("finalizing a never-activated shift must fail, got %v", err)
	}
}

func TestActivateSucceedsExactlyOnce(t *testing.T) {
	svc, repo, presence := newTestService()
	orgID := uuid.New()
	brokerID := uuid.New()
	actor := Actor{ID: brokerID}

	created, err := svc.CreateShift(context.Background(), orgID, actor, createReq(brokerID, 2, "10:00", "12:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Activate(context.Background(), created.ID, orgID, actor); err != nil {
		t.Fatalf("first activation should succeed: %v", err)
	}
	if presence.statuses[brokerID] != "AVAILABLE" {
		t.Fatalf("activation must set broker AVAILABLE, got %q", presence.statuses[brokerID])
	}

	_, err = svc.Activate(context.Background(), created.ID, orgID, actor)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("second activation must fail, got %v", err)
	}

	if repo.shifts[created.ID].Status != domain.StatusActive {
		t.Fatalf("shift should remain ACTIVE, got %s", repo.shifts[created.ID].Status)
	}
}

func TestActivateOnlyByOwningBroker(t *testing.T) {
	svc, _, _ := newTestService()
	orgID := uuid.New()
	brokerID := uuid.New()

	created, err := svc.CreateShift(context.Background(), orgID, Actor{ID: brokerID}, createReq(brokerID, 2, "10:00", "12:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Even an administrator cannot activate someone else's shift.
	_, err = svc.Activate(context.Background(), created.ID, orgID, Actor{ID: uuid.New(), IsAdmin: true})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCancelByAdminFromActive(t *testing.T) {
	svc, repo, _ := newTestService()
	orgID := uuid.New()
	brokerID := uuid.New()
	owner := Actor{ID: brokerID}

	created, err := svc.CreateShift(context.Background(), orgID, owner, createReq(brokerID, 2, "10:00", "12:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Activate(context.Background(), created.ID, orgID, owner); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Cancel(context.Background(), created.ID, orgID, Actor{ID: uuid.New(), IsAdmin: true}); err != nil {
		t.Fatalf("admin cancel should succeed: %v", err)
	}

	if repo.shifts[created.ID].Status != domain.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", repo.shifts[created.ID].Status)
	}

	// Cancelled is terminal.
	_, err = svc.Cancel(context.Background(), created.ID, orgID, owner)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("cancelling twice must fail, got %v", err)
	}
}

func TestCancelledShiftFreesItsWindow(t *testing.T) {
	svc, _, _ := newTestService()
	orgID := uuid.New()
	brokerID := uuid.New()
	actor := Actor{ID: brokerID}

	created, err := svc.CreateShift(context.Background(), orgID, actor, createReq(brokerID, 2, "10:00", "12:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), created.ID, orgID, actor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.CreateShift(context.Background(), orgID, actor, createReq(brokerID, 2, "10:00", "12:00")); err != nil {
		t.Fatalf("cancelled shift must not block its window: %v", err)
	}
}

func TestCurrentOnDutyFiltersByWindow(t *testing.T) {
	svc, _, _ := newTestService()
	orgID := uuid.New()
	onDuty := uuid.New()
	offDuty := uuid.New()

	created, err := svc.CreateShift(context.Background(), orgID, Actor{ID: onDuty}, createReq(onDuty, 2, "10:00", "12:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Activate(context.Background(), created.ID, orgID, Actor{ID: onDuty}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second broker has a shift covering the instant but never activated it.
	if _, err := svc.CreateShift(context.Background(), orgID, Actor{ID: offDuty}, createReq(offDuty, 2, "09:00", "13:00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 2026-09-01 is a Tuesday (ISO day 2).
	now := time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC)
	brokers, err := svc.CurrentOnDuty(context.Background(), orgID, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(brokers) != 1 || brokers[0].BrokerID != onDuty {
		t.Fatalf("expected only the activated broker on duty, got %+v", brokers)
	}
}
