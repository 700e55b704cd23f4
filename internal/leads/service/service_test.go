package service

import (
	"context"
	"testing"
	"time"

	"plantao_backend/internal/distribution"
	"plantao_backend/internal/events"
	"plantao_backend/internal/leads/repository"
	"plantao_backend/internal/leads/transport"
	regionrepo "plantao_backend/internal/regions/repository"
	regionsvc "plantao_backend/internal/regions/service"
	"plantao_backend/platform/logger"

	"github.com/google/uuid"
)

type stubRepo struct {
	leads map[uuid.UUID]*repository.Lead
}

func newStubRepo() *stubRepo {
	return &stubRepo{leads: make(map[uuid.UUID]*repository.Lead)}
}

func (s *stubRepo) Create(_ context.Context, lead *repository.Lead) error {
	copied := *lead
	s.leads[lead.ID] = &copied
	return nil
}

func (s *stubRepo) GetByID(_ context.Context, id, _ uuid.UUID) (*repository.Lead, error) {
	copied := *s.leads[id]
	return &copied, nil
}

func (s *stubRepo) List(_ context.Context, _ uuid.UUID, _ repository.Filter) ([]repository.Lead, error) {
	var out []repository.Lead
	for _, lead := range s.leads {
		out = append(out, *lead)
	}
	return out, nil
}

func (s *stubRepo) SetRoutingStatus(_ context.Context, id, _ uuid.UUID, status string) error {
	s.leads[id].RoutingStatus = status
	return nil
}

func (s *stubRepo) Assign(_ context.Context, id, _, brokerID uuid.UUID, at time.Time) error {
	lead := s.leads[id]
	lead.AssignedBrokerID = &brokerID
	lead.DistributionTimestamp = &at
	lead.RoutingStatus = repository.RoutingAssigned
	return nil
}

func (s *stubRepo) MoveStage(_ context.Context, id, _, stageID uuid.UUID, at time.Time) error {
	lead := s.leads[id]
	lead.StageID = stageID
	lead.LastInteractionAt = at
	return nil
}

func (s *stubRepo) Touch(_ context.Context, id, _ uuid.UUID, at time.Time) error {
	s.leads[id].LastInteractionAt = at
	return nil
}

type stubRouter struct {
	resolution *regionsvc.Resolution
	err        error
}

func (s *stubRouter) Resolve(context.Context, uuid.UUID, string, string) (*regionsvc.Resolution, error) {
	return s.resolution, s.err
}

type stubRegionStore struct {
	region *regionrepo.Region
}

func (s *stubRegionStore) GetByID(context.Context, uuid.UUID, uuid.UUID) (*regionrepo.Region, error) {
	return s.region, nil
}

// stubDistributor mimics the engine's contract: on success it performs the
// assignment write itself before returning the broker.
type stubDistributor struct {
	repo     *stubRepo
	brokerID uuid.UUID
	err      error
	calls    int
}

func (s *stubDistributor) Assign(ctx context.Context, leadID uuid.UUID, region *regionrepo.Region, now time.Time) (uuid.UUID, error) {
	s.calls++
	if s.err != nil {
		return uuid.Nil, s.err
	}
	_ = s.repo.Assign(ctx, leadID, region.OrganizationID, s.brokerID, now)
	return s.brokerID, nil
}

func intakeReq(orgID uuid.UUID, phoneNumber string) transport.IntakeLeadRequest {
	return transport.IntakeLeadRequest{
		OrganizationID: orgID,
		Name:           "Maria Silva",
		Phone:          phoneNumber,
		BoardID:        uuid.New(),
		StageID:        uuid.New(),
	}
}

func newTestService(repo *stubRepo, router *stubRouter, store *stubRegionStore, dist *stubDistributor) (*Service, events.Bus) {
	bus := events.NewInMemoryBus(nil)
	return New(repo, router, store, dist, bus, logger.New("test")), bus
}

func TestIntakeAssignsResolvedLead(t *testing.T) {
	orgID := uuid.New()
	brokerID := uuid.New()
	region := &regionrepo.Region{ID: uuid.New(), OrganizationID: orgID, Strategy: regionrepo.StrategyRoundRobin}

	repo := newStubRepo()
	router := &stubRouter{resolution: &regionsvc.Resolution{RegionID: region.ID, AreaCode: "11", MatchedBy: "area_code"}}
	dist := &stubDistributor{repo: repo, brokerID: brokerID}
	svc, _ := newTestService(repo, router, &stubRegionStore{region: region}, dist)

	result, err := svc.Intake(context.Background(), orgID, intakeReq(orgID, "+55 11 98888-7777"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RoutingStatus != repository.RoutingAssigned {
		t.Fatalf("expected ASSIGNED, got %s", result.RoutingStatus)
	}
	if result.AssignedBrokerID == nil || *result.AssignedBrokerID != brokerID {
		t.Fatalf("expected broker %s assigned, got %v", brokerID, result.AssignedBrokerID)
	}
	if result.RegionID == nil || *result.RegionID != region.ID {
		t.Fatalf("expected region %s, got %v", region.ID, result.RegionID)
	}
	if dist.calls != 1 {
		t.Fatalf("expected exactly one distribution call, got %d", dist.calls)
	}
}

func TestIntakeKeepsUnresolvableLead(t *testing.T) {
	orgID := uuid.New()
	repo := newStubRepo()
	router := &stubRouter{err: regionsvc.ErrUnresolvableNumber}
	dist := &stubDistributor{repo: repo}
	svc, _ := newTestService(repo, router, &stubRegionStore{}, dist)

	result, err := svc.Intake(context.Background(), orgID, intakeReq(orgID, "123"))
	if err != nil {
		t.Fatalf("short phone must not fail intake: %v", err)
	}

	if result.RoutingStatus != repository.RoutingUnresolved {
		t.Fatalf("expected UNRESOLVED, got %s", result.RoutingStatus)
	}
	if len(repo.leads) != 1 {
		t.Fatalf("lead must be persisted, have %d", len(repo.leads))
	}
	if dist.calls != 0 {
		t.Fatal("unresolved leads must not be distributed")
	}
}

func TestIntakeFlagsUnclaimedNumber(t *testing.T) {
	orgID := uuid.New()
	repo := newStubRepo()
	// Valid number, but no region claims it.
	svc, _ := newTestService(repo, &stubRouter{}, &stubRegionStore{}, &stubDistributor{repo: repo})

	result, err := svc.Intake(context.Background(), orgID, intakeReq(orgID, "+55 11 98888-7777"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RoutingStatus != repository.RoutingUnresolved {
		t.Fatalf("expected UNRESOLVED, got %s", result.RoutingStatus)
	}
}

func TestIntakeKeepsLeadWhenNoBrokerEligible(t *testing.T) {
	orgID := uuid.New()
	region := &regionrepo.Region{ID: uuid.New(), OrganizationID: orgID, Strategy: regionrepo.StrategyRoundRobin}
	repo := newStubRepo()
	router := &stubRouter{resolution: &regionsvc.Resolution{RegionID: region.ID}}
	dist := &stubDistributor{repo: repo, err: distribution.ErrNoEligibleBroker}
	svc, _ := newTestService(repo, router, &stubRegionStore{region: region}, dist)

	result, err := svc.Intake(context.Background(), orgID, intakeReq(orgID, "+55 11 98888-7777"))
	if err != nil {
		t.Fatalf("no eligible broker must not fail intake: %v", err)
	}
	if result.RoutingStatus != repository.RoutingUnassigned {
		t.Fatalf("expected UNASSIGNED, got %s", result.RoutingStatus)
	}
	if result.AssignedBrokerID != nil {
		t.Fatal("lead must stay unassigned")
	}
}

func TestIntakeFlagsManualRegion(t *testing.T) {
	orgID := uuid.New()
	region := &regionrepo.Region{ID: uuid.New(), OrganizationID: orgID, Strategy: regionrepo.StrategyManual}
	repo := newStubRepo()
	router := &stubRouter{resolution: &regionsvc.Resolution{RegionID: region.ID}}
	dist := &stubDistributor{repo: repo, err: distribution.ErrManualAssignmentRequired}
	svc, _ := newTestService(repo, router, &stubRegionStore{region: region}, dist)

	result, err := svc.Intake(context.Background(), orgID, intakeReq(orgID, "+55 11 98888-7777"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RoutingStatus != repository.RoutingManualRequired {
		t.Fatalf("expected MANUAL_REQUIRED, got %s", result.RoutingStatus)
	}
}

func TestIntakeDispatchesLeadCreatedSynchronously(t *testing.T) {
	orgID := uuid.New()
	repo := newStubRepo()
	svc, bus := newTestService(repo, &stubRouter{err: regionsvc.ErrUnresolvableNumber}, &stubRegionStore{}, &stubDistributor{repo: repo})

	var received *events.LeadCreated
	bus.Subscribe(events.EventLeadCreated, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		evt := e.(events.LeadCreated)
		received = &evt
		return nil
	}))

	result, err := svc.Intake(context.Background(), orgID, intakeReq(orgID, "123"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// PublishSync means the handler already ran by the time Intake returns.
	if received == nil {
		t.Fatal("expected LeadCreated to be dispatched synchronously")
	}
	if received.LeadID != result.ID {
		t.Fatalf("event lead id %s does not match created lead %s", received.LeadID, result.ID)
	}
}

func TestMoveStageDispatchesStageChanged(t *testing.T) {
	orgID := uuid.New()
	repo := newStubRepo()
	svc, bus := newTestService(repo, &stubRouter{err: regionsvc.ErrUnresolvableNumber}, &stubRegionStore{}, &stubDistributor{repo: repo})

	created, err := svc.Intake(context.Background(), orgID, intakeReq(orgID, "123"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var received *events.StageChanged
	bus.Subscribe(events.EventStageChanged, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		evt := e.(events.StageChanged)
		received = &evt
		return nil
	}))

	targetStage := uuid.New()
	actor := uuid.New()
	result, err := svc.MoveStage(context.Background(), created.ID, orgID, actor, transport.MoveStageRequest{StageID: targetStage})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.StageID != targetStage {
		t.Fatalf("expected stage %s, got %s", targetStage, result.StageID)
	}
	if received == nil {
		t.Fatal("expected StageChanged to be dispatched synchronously")
	}
	if received.FromStageID == nil || *received.FromStageID != created.StageID {
		t.Fatal("event must carry the previous stage")
	}
	if received.ToStageID != targetStage {
		t.Fatal("event must carry the target stage")
	}
}
