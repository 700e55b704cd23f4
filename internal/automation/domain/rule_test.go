package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func baseRule(trigger TriggerType, tc TriggerConfig, action ActionType, ac ActionConfig) Rule {
	return Rule{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		BoardID:        uuid.New(),
		Name:           "test rule",
		TriggerType:    trigger,
		Trigger:        tc,
		ActionType:     action,
		Action:         ac,
		Active:         true,
	}
}

func validAction() (ActionType, ActionConfig) {
	return ActionMoveStage, ActionConfig{MoveStage: &MoveStageAction{TargetStageID: uuid.New()}}
}

func TestRuleValidate(t *testing.T) {
	at, ac := validAction()

	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{
			name: "valid inactivity rule",
			rule: baseRule(TriggerInactivity, TriggerConfig{Inactivity: &InactivityTrigger{ThresholdMinutes: 60}}, at, ac),
		},
		{
			name: "valid time elapsed rule",
			rule: baseRule(TriggerTimeElapsed, TriggerConfig{TimeElapsed: &TimeElapsedTrigger{DelayMinutes: 30}}, at, ac),
		},
		{
			name:    "trigger variant does not match declared type",
			rule:    baseRule(TriggerInactivity, TriggerConfig{TimeElapsed: &TimeElapsedTrigger{DelayMinutes: 30}}, at, ac),
			wantErr: true,
		},
		{
			name:    "two trigger variants set",
			rule:    baseRule(TriggerInactivity, TriggerConfig{Inactivity: &InactivityTrigger{ThresholdMinutes: 60}, LeadCreated: &LeadCreatedTrigger{}}, at, ac),
			wantErr: true,
		},
		{
			name:    "non-positive threshold",
			rule:    baseRule(TriggerInactivity, TriggerConfig{Inactivity: &InactivityTrigger{ThresholdMinutes: 0}}, at, ac),
			wantErr: true,
		},
		{
			name:    "stage changed without target stage",
			rule:    baseRule(TriggerStageChanged, TriggerConfig{StageChanged: &StageChangedTrigger{}}, at, ac),
			wantErr: true,
		},
		{
			name: "move stage without target",
			rule: baseRule(TriggerLeadCreated, TriggerConfig{LeadCreated: &LeadCreatedTrigger{}},
				ActionMoveStage, ActionConfig{MoveStage: &MoveStageAction{}}),
			wantErr: true,
		},
		{
			name: "update lead with no fields",
			rule: baseRule(TriggerLeadCreated, TriggerConfig{LeadCreated: &LeadCreatedTrigger{}},
				ActionUpdateLead, ActionConfig{UpdateLead: &UpdateLeadAction{}}),
			wantErr: true,
		},
		{
			name: "action variant does not match declared type",
			rule: baseRule(TriggerLeadCreated, TriggerConfig{LeadCreated: &LeadCreatedTrigger{}},
				ActionSendEmail, ActionConfig{MoveStage: &MoveStageAction{TargetStageID: uuid.New()}}),
			wantErr: true,
		},
		{
			name:    "unknown trigger type",
			rule:    baseRule("SOMETHING", TriggerConfig{LeadCreated: &LeadCreatedTrigger{}}, at, ac),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseTriggerConfigRejectsUnknownType(t *testing.T) {
	if _, err := ParseTriggerConfig("NOPE", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unknown trigger type")
	}
}

func TestParseActionConfigDecodesDeclaredVariant(t *testing.T) {
	cfg, err := ParseActionConfig(ActionCreateFollowUp, json.RawMessage(`{"title":"call back","dueInMinutes":120}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CreateFollowUp == nil || cfg.CreateFollowUp.Title != "call back" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.CreateFollowUp.Due() != 2*time.Hour {
		t.Fatalf("expected 2h due offset, got %s", cfg.CreateFollowUp.Due())
	}
}

func TestDueAt(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	at, ac := validAction()

	inactivity := baseRule(TriggerInactivity,
		TriggerConfig{Inactivity: &InactivityTrigger{ThresholdMinutes: 7 * 24 * 60}},
		at, ac)
	if inactivity.DueAt(now, now.Add(-30*24*time.Hour), now.Add(-6*24*time.Hour)) {
		t.Fatal("lead touched six days ago must not be due under a 7-day threshold")
	}
	if !inactivity.DueAt(now, now.Add(-30*24*time.Hour), now.Add(-7*24*time.Hour)) {
		t.Fatal("lead untouched for exactly 7 days must be due")
	}

	elapsed := baseRule(TriggerTimeElapsed,
		TriggerConfig{TimeElapsed: &TimeElapsedTrigger{DelayMinutes: 60}},
		at, ac)
	if elapsed.DueAt(now, now.Add(-30*time.Minute), now) {
		t.Fatal("lead created 30 minutes ago must not be due under a 60-minute delay")
	}
	if !elapsed.DueAt(now, now.Add(-2*time.Hour), now) {
		t.Fatal("lead created two hours ago must be due")
	}
}

func TestMatchesStageChange(t *testing.T) {
	target := uuid.New()
	origin := uuid.New()
	at, ac := validAction()

	anyOrigin := baseRule(TriggerStageChanged,
		TriggerConfig{StageChanged: &StageChangedTrigger{ToStageID: target}},
		at, ac)
	if !anyOrigin.MatchesStageChange(nil, target) {
		t.Fatal("rule without origin filter must match any transition into the target")
	}
	if anyOrigin.MatchesStageChange(nil, uuid.New()) {
		t.Fatal("rule must not match a different target stage")
	}

	fromOrigin := baseRule(TriggerStageChanged,
		TriggerConfig{StageChanged: &StageChangedTrigger{ToStageID: target, FromStageID: &origin}},
		at, ac)
	if !fromOrigin.MatchesStageChange(&origin, target) {
		t.Fatal("rule must match its configured origin stage")
	}
	other := uuid.New()
	if fromOrigin.MatchesStageChange(&other, target) {
		t.Fatal("rule must not match a different origin stage")
	}
}
