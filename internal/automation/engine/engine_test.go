package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"plantao_backend/internal/automation/domain"
	"plantao_backend/internal/events"
	leadrepo "plantao_backend/internal/leads/repository"
	"plantao_backend/platform/logger"

	"github.com/google/uuid"
)

type executionKey struct {
	ruleID   uuid.UUID
	leadID   uuid.UUID
	windowID string
}

// stubRuleStore mirrors the insert-if-absent semantics of the unique key on
// (rule, lead, window).
type stubRuleStore struct {
	mu         sync.Mutex
	rules      []domain.Rule
	executions map[executionKey]bool
}

func newStubRuleStore(rules ...domain.Rule) *stubRuleStore {
	return &stubRuleStore{rules: rules, executions: make(map[executionKey]bool)}
}

func (s *stubRuleStore) ListActiveForBoard(_ context.Context, boardID uuid.UUID, triggerType domain.TriggerType) ([]domain.Rule, error) {
	var out []domain.Rule
	for _, rule := range s.rules {
		if rule.BoardID == boardID && rule.TriggerType == triggerType && rule.Active {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (s *stubRuleStore) ListActivePeriodic(context.Context) ([]domain.Rule, error) {
	var out []domain.Rule
	for _, rule := range s.rules {
		if rule.TriggerType.Periodic() && rule.Active {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (s *stubRuleStore) InsertExecution(_ context.Context, ruleID, leadID uuid.UUID, windowID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := executionKey{ruleID: ruleID, leadID: leadID, windowID: windowID}
	if s.executions[key] {
		return false, nil
	}
	s.executions[key] = true
	return true, nil
}

func (s *stubRuleStore) executionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.executions)
}

type stubLeadSource struct {
	leads []leadrepo.Lead
}

func (s *stubLeadSource) GetByID(_ context.Context, id, _ uuid.UUID) (*leadrepo.Lead, error) {
	for i := range s.leads {
		if s.leads[i].ID == id {
			copied := s.leads[i]
			return &copied, nil
		}
	}
	return nil, errors.New("lead not found")
}

func (s *stubLeadSource) ListOpenByBoard(_ context.Context, boardID uuid.UUID) ([]leadrepo.Lead, error) {
	var out []leadrepo.Lead
	for _, lead := range s.leads {
		if lead.BoardID == boardID && lead.Status == leadrepo.StatusOpen {
			out = append(out, lead)
		}
	}
	return out, nil
}

// spyCRM counts stage moves and can be told to fail for one lead.
type spyCRM struct {
	mu       sync.Mutex
	moves    map[uuid.UUID]int
	patches  map[uuid.UUID]int
	failFor  uuid.UUID
	panicFor uuid.UUID
}

func newSpyCRM() *spyCRM {
	return &spyCRM{moves: make(map[uuid.UUID]int), patches: make(map[uuid.UUID]int)}
}

func (s *spyCRM) MoveLeadStage(_ context.Context, leadID, _, _ uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if leadID == s.panicFor {
		panic("executor blew up")
	}
	if leadID == s.failFor {
		return errors.New("stage move rejected")
	}
	s.moves[leadID]++
	return nil
}

func (s *spyCRM) PatchLead(_ context.Context, leadID, _ uuid.UUID, _ leadrepo.FieldPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches[leadID]++
	return nil
}

func (s *spyCRM) movesFor(leadID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moves[leadID]
}

func (s *spyCRM) patchesFor(leadID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patches[leadID]
}

type noopSender struct{}

func (noopSender) Send(context.Context, string, string, string) error { return nil }

type noopMessenger struct{}

func (noopMessenger) Send(context.Context, string, string) error { return nil }

type noopFollowUps struct{}

func (noopFollowUps) CreateFromAutomation(context.Context, uuid.UUID, uuid.UUID, *uuid.UUID, string, time.Duration) error {
	return nil
}

func newTestEngine(rules *stubRuleStore, leads *stubLeadSource, crm *spyCRM) *Engine {
	return New(rules, leads, crm, noopSender{}, noopMessenger{}, noopFollowUps{}, logger.New("test"))
}

func inactivityRule(boardID uuid.UUID, thresholdMinutes int, targetStage uuid.UUID) domain.Rule {
	return domain.Rule{
		ID:          uuid.New(),
		BoardID:     boardID,
		Name:        "reactivate stale leads",
		TriggerType: domain.TriggerInactivity,
		Trigger:     domain.TriggerConfig{Inactivity: &domain.InactivityTrigger{ThresholdMinutes: thresholdMinutes}},
		ActionType:  domain.ActionMoveStage,
		Action:      domain.ActionConfig{MoveStage: &domain.MoveStageAction{TargetStageID: targetStage}},
		Active:      true,
		CreatedAt:   time.Now(),
	}
}

func openLead(boardID uuid.UUID, createdAt, lastInteraction time.Time) leadrepo.Lead {
	return leadrepo.Lead{
		ID:                uuid.New(),
		OrganizationID:    uuid.New(),
		BoardID:           boardID,
		StageID:           uuid.New(),
		Name:              "Ana",
		Phone:             "+5511988887777",
		Status:            leadrepo.StatusOpen,
		CreatedAt:         createdAt,
		LastInteractionAt: lastInteraction,
	}
}

func TestSweepFiresAtMostOncePerWindow(t *testing.T) {
	boardID := uuid.New()
	now := time.Now()
	rule := inactivityRule(boardID, 7*24*60, uuid.New())
	lead := openLead(boardID, now.Add(-30*24*time.Hour), now.Add(-8*24*time.Hour))

	rules := newStubRuleStore(rule)
	crm := newSpyCRM()
	engine := newTestEngine(rules, &stubLeadSource{leads: []leadrepo.Lead{lead}}, crm)

	if err := engine.Sweep(context.Background(), "3600-100", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := engine.Sweep(context.Background(), "3600-100", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := crm.movesFor(lead.ID); got != 1 {
		t.Fatalf("action must fire exactly once per window, fired %d times", got)
	}
	if rules.executionCount() != 1 {
		t.Fatalf("expected one execution record, have %d", rules.executionCount())
	}
}

func TestSweepConcurrentSameWindow(t *testing.T) {
	boardID := uuid.New()
	now := time.Now()
	rule := inactivityRule(boardID, 60, uuid.New())
	lead := openLead(boardID, now.Add(-24*time.Hour), now.Add(-2*time.Hour))

	rules := newStubRuleStore(rule)
	crm := newSpyCRM()
	engine := newTestEngine(rules, &stubLeadSource{leads: []leadrepo.Lead{lead}}, crm)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = engine.Sweep(context.Background(), "900-42", now)
		}()
	}
	wg.Wait()

	if got := crm.movesFor(lead.ID); got != 1 {
		t.Fatalf("overlapping sweeps of one window must fire once, fired %d times", got)
	}
}

func TestSweepNewWindowFiresAgain(t *testing.T) {
	boardID := uuid.New()
	now := time.Now()
	rule := inactivityRule(boardID, 60, uuid.New())
	lead := openLead(boardID, now.Add(-24*time.Hour), now.Add(-2*time.Hour))

	rules := newStubRuleStore(rule)
	crm := newSpyCRM()
	engine := newTestEngine(rules, &stubLeadSource{leads: []leadrepo.Lead{lead}}, crm)

	_ = engine.Sweep(context.Background(), "3600-100", now)
	_ = engine.Sweep(context.Background(), "3600-101", now)

	if got := crm.movesFor(lead.ID); got != 2 {
		t.Fatalf("a new window permits a new firing, fired %d times", got)
	}
}

func TestSweepSkipsLeadsNotDue(t *testing.T) {
	boardID := uuid.New()
	now := time.Now()
	rule := inactivityRule(boardID, 7*24*60, uuid.New())
	fresh := openLead(boardID, now.Add(-time.Hour), now.Add(-time.Hour))

	rules := newStubRuleStore(rule)
	crm := newSpyCRM()
	engine := newTestEngine(rules, &stubLeadSource{leads: []leadrepo.Lead{fresh}}, crm)

	_ = engine.Sweep(context.Background(), "3600-100", now)

	if crm.movesFor(fresh.ID) != 0 {
		t.Fatal("recently touched lead must not trigger an inactivity rule")
	}
	if rules.executionCount() != 0 {
		t.Fatal("no execution record must be written for a non-matching pair")
	}
}

func TestSweepIsolatesFailures(t *testing.T) {
	boardID := uuid.New()
	now := time.Now()
	stale := now.Add(-2 * time.Hour)

	ruleA := inactivityRule(boardID, 60, uuid.New())
	ruleB := domain.Rule{
		ID:          uuid.New(),
		BoardID:     boardID,
		Name:        "mark cold",
		TriggerType: domain.TriggerInactivity,
		Trigger:     domain.TriggerConfig{Inactivity: &domain.InactivityTrigger{ThresholdMinutes: 60}},
		ActionType:  domain.ActionUpdateLead,
		Action:      domain.ActionConfig{UpdateLead: &domain.UpdateLeadAction{Temperature: strPtr("COLD")}},
		Active:      true,
		CreatedAt:   time.Now(),
	}

	lead1 := openLead(boardID, now.Add(-24*time.Hour), stale)
	lead2 := openLead(boardID, now.Add(-24*time.Hour), stale)

	rules := newStubRuleStore(ruleA, ruleB)
	crm := newSpyCRM()
	crm.failFor = lead1.ID
	engine := newTestEngine(rules, &stubLeadSource{leads: []leadrepo.Lead{lead1, lead2}}, crm)

	if err := engine.Sweep(context.Background(), "3600-7", now); err != nil {
		t.Fatalf("sweep must swallow per-pair failures: %v", err)
	}

	// (ruleA, lead1) failed; everything else must have run.
	if crm.movesFor(lead2.ID) != 1 {
		t.Fatal("(ruleA, lead2) must execute despite the (ruleA, lead1) failure")
	}
	if crm.patchesFor(lead1.ID) != 1 {
		t.Fatal("(ruleB, lead1) must execute despite the (ruleA, lead1) failure")
	}
	if crm.patchesFor(lead2.ID) != 1 {
		t.Fatal("(ruleB, lead2) must execute")
	}
}

func TestSweepContainsPanickingAction(t *testing.T) {
	boardID := uuid.New()
	now := time.Now()
	rule := inactivityRule(boardID, 60, uuid.New())
	lead := openLead(boardID, now.Add(-24*time.Hour), now.Add(-2*time.Hour))

	rules := newStubRuleStore(rule)
	crm := newSpyCRM()
	crm.panicFor = lead.ID
	engine := newTestEngine(rules, &stubLeadSource{leads: []leadrepo.Lead{lead}}, crm)

	if err := engine.Sweep(context.Background(), "3600-9", now); err != nil {
		t.Fatalf("panicking action must not escape the sweep: %v", err)
	}
}

func TestDispatchStageChangedRunsMatchingRules(t *testing.T) {
	boardID := uuid.New()
	target := uuid.New()
	other := uuid.New()

	matching := domain.Rule{
		ID:          uuid.New(),
		BoardID:     boardID,
		TriggerType: domain.TriggerStageChanged,
		Trigger:     domain.TriggerConfig{StageChanged: &domain.StageChangedTrigger{ToStageID: target}},
		ActionType:  domain.ActionUpdateLead,
		Action:      domain.ActionConfig{UpdateLead: &domain.UpdateLeadAction{Temperature: strPtr("HOT")}},
		Active:      true,
	}
	nonMatching := domain.Rule{
		ID:          uuid.New(),
		BoardID:     boardID,
		TriggerType: domain.TriggerStageChanged,
		Trigger:     domain.TriggerConfig{StageChanged: &domain.StageChangedTrigger{ToStageID: other}},
		ActionType:  domain.ActionMoveStage,
		Action:      domain.ActionConfig{MoveStage: &domain.MoveStageAction{TargetStageID: uuid.New()}},
		Active:      true,
	}

	lead := openLead(boardID, time.Now(), time.Now())
	rules := newStubRuleStore(matching, nonMatching)
	crm := newSpyCRM()
	engine := newTestEngine(rules, &stubLeadSource{leads: []leadrepo.Lead{lead}}, crm)

	err := engine.HandleEvent(context.Background(), events.StageChanged{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		BoardID:        boardID,
		ToStageID:      target,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if crm.patchesFor(lead.ID) != 1 {
		t.Fatal("matching rule must execute")
	}
	if crm.movesFor(lead.ID) != 0 {
		t.Fatal("rule targeting a different stage must not execute")
	}
}

func TestDispatchLeadCreatedOnlyUnassigned(t *testing.T) {
	boardID := uuid.New()
	rule := domain.Rule{
		ID:          uuid.New(),
		BoardID:     boardID,
		TriggerType: domain.TriggerLeadCreated,
		Trigger:     domain.TriggerConfig{LeadCreated: &domain.LeadCreatedTrigger{OnlyUnassigned: true}},
		ActionType:  domain.ActionUpdateLead,
		Action:      domain.ActionConfig{UpdateLead: &domain.UpdateLeadAction{Tags: []string{"needs-routing"}}},
		Active:      true,
	}

	lead := openLead(boardID, time.Now(), time.Now())
	rules := newStubRuleStore(rule)
	crm := newSpyCRM()
	engine := newTestEngine(rules, &stubLeadSource{leads: []leadrepo.Lead{lead}}, crm)

	brokerID := uuid.New()
	evt := events.LeadCreated{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		BoardID:        boardID,
	}

	assigned := evt
	assigned.AssignedBrokerID = &brokerID
	if err := engine.HandleEvent(context.Background(), assigned); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crm.patchesFor(lead.ID) != 0 {
		t.Fatal("assigned lead must not match an only-unassigned rule")
	}

	if err := engine.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crm.patchesFor(lead.ID) != 1 {
		t.Fatal("unassigned lead must match the rule")
	}
}

func strPtr(s string) *string { return &s }
