// Package domain models automation rules: typed trigger and action
// configurations validated at construction time, plus the pure predicate
// logic the engine evaluates. No I/O.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"plantao_backend/platform/apperr"

	"github.com/google/uuid"
)

// TriggerType identifies what causes a rule to fire.
type TriggerType string

const (
	TriggerTimeElapsed  TriggerType = "TIME_ELAPSED"
	TriggerStageChanged TriggerType = "STAGE_CHANGED"
	TriggerLeadCreated  TriggerType = "LEAD_CREATED"
	TriggerInactivity   TriggerType = "INACTIVITY"
)

// Periodic reports whether rules of this trigger type are evaluated by the
// scheduled sweep rather than by event dispatch.
func (t TriggerType) Periodic() bool {
	return t == TriggerTimeElapsed || t == TriggerInactivity
}

// Valid reports whether the trigger type is known.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerTimeElapsed, TriggerStageChanged, TriggerLeadCreated, TriggerInactivity:
		return true
	}
	return false
}

// ActionType identifies what a rule does when it fires.
type ActionType string

const (
	ActionMoveStage      ActionType = "MOVE_STAGE"
	ActionSendEmail      ActionType = "SEND_EMAIL"
	ActionSendWhatsApp   ActionType = "SEND_WHATSAPP"
	ActionCreateFollowUp ActionType = "CREATE_FOLLOWUP"
	ActionUpdateLead     ActionType = "UPDATE_LEAD"
)

// Valid reports whether the action type is known.
func (t ActionType) Valid() bool {
	switch t {
	case ActionMoveStage, ActionSendEmail, ActionSendWhatsApp, ActionCreateFollowUp, ActionUpdateLead:
		return true
	}
	return false
}

// TimeElapsedTrigger fires once a lead has existed for at least Delay.
type TimeElapsedTrigger struct {
	DelayMinutes int `json:"delayMinutes"`
}

// Delay returns the configured delay as a duration.
func (t TimeElapsedTrigger) Delay() time.Duration {
	return time.Duration(t.DelayMinutes) * time.Minute
}

// InactivityTrigger fires once a lead has had no interaction for Threshold.
type InactivityTrigger struct {
	ThresholdMinutes int `json:"thresholdMinutes"`
}

// Threshold returns the configured inactivity threshold as a duration.
func (t InactivityTrigger) Threshold() time.Duration {
	return time.Duration(t.ThresholdMinutes) * time.Minute
}

// StageChangedTrigger fires when a lead enters ToStageID, optionally only
// when it came from FromStageID.
type StageChangedTrigger struct {
	ToStageID   uuid.UUID  `json:"toStageId"`
	FromStageID *uuid.UUID `json:"fromStageId,omitempty"`
}

// LeadCreatedTrigger fires on lead creation. OnlyUnassigned restricts it to
// leads distribution could not route.
type LeadCreatedTrigger struct {
	OnlyUnassigned bool `json:"onlyUnassigned"`
}

// TriggerConfig is a tagged union: exactly the variant matching the rule's
// trigger type is non-nil.
type TriggerConfig struct {
	TimeElapsed  *TimeElapsedTrigger  `json:"timeElapsed,omitempty"`
	Inactivity   *InactivityTrigger   `json:"inactivity,omitempty"`
	StageChanged *StageChangedTrigger `json:"stageChanged,omitempty"`
	LeadCreated  *LeadCreatedTrigger  `json:"leadCreated,omitempty"`
}

// MoveStageAction moves the lead to TargetStageID.
type MoveStageAction struct {
	TargetStageID uuid.UUID `json:"targetStageId"`
}

// SendEmailAction sends a templated email to the lead.
type SendEmailAction struct {
	Subject  string `json:"subject"`
	Template string `json:"template"`
}

// SendWhatsAppAction sends a message to the lead's phone.
type SendWhatsAppAction struct {
	Message string `json:"message"`
}

// CreateFollowUpAction creates a follow-up task for the lead's broker.
type CreateFollowUpAction struct {
	Title        string `json:"title"`
	DueInMinutes int    `json:"dueInMinutes"`
}

// Due returns the follow-up due offset as a duration.
func (a CreateFollowUpAction) Due() time.Duration {
	return time.Duration(a.DueInMinutes) * time.Minute
}

// UpdateLeadAction patches a fixed set of lead fields. Nil fields are left
// untouched.
type UpdateLeadAction struct {
	Temperature *string  `json:"temperature,omitempty"`
	Status      *string  `json:"status,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ActionConfig is a tagged union: exactly the variant matching the rule's
// action type is non-nil.
type ActionConfig struct {
	MoveStage      *MoveStageAction      `json:"moveStage,omitempty"`
	SendEmail      *SendEmailAction      `json:"sendEmail,omitempty"`
	SendWhatsApp   *SendWhatsAppAction   `json:"sendWhatsApp,omitempty"`
	CreateFollowUp *CreateFollowUpAction `json:"createFollowUp,omitempty"`
	UpdateLead     *UpdateLeadAction     `json:"updateLead,omitempty"`
}

// Rule is an automation rule definition. Trigger and Action shapes are
// validated against the declared types when the rule is built, never at
// execution time.
type Rule struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	BoardID        uuid.UUID
	Name           string
	TriggerType    TriggerType
	Trigger        TriggerConfig
	ActionType     ActionType
	Action         ActionConfig
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks that the rule's config variants match its declared
// trigger and action types and carry sane values.
func (r *Rule) Validate() error {
	if !r.TriggerType.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown trigger type %q", r.TriggerType))
	}
	if !r.ActionType.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown action type %q", r.ActionType))
	}
	if err := r.Trigger.validate(r.TriggerType); err != nil {
		return err
	}
	return r.Action.validate(r.ActionType)
}

func (c TriggerConfig) validate(t TriggerType) error {
	variants := 0
	if c.TimeElapsed != nil {
		variants++
	}
	if c.Inactivity != nil {
		variants++
	}
	if c.StageChanged != nil {
		variants++
	}
	if c.LeadCreated != nil {
		variants++
	}
	if variants != 1 {
		return apperr.Validation("exactly one trigger config variant must be set")
	}

	switch t {
	case TriggerTimeElapsed:
		if c.TimeElapsed == nil {
			return mismatch("trigger", string(t))
		}
		if c.TimeElapsed.DelayMinutes <= 0 {
			return apperr.Validation("delayMinutes must be positive")
		}
	case TriggerInactivity:
		if c.Inactivity == nil {
			return mismatch("trigger", string(t))
		}
		if c.Inactivity.ThresholdMinutes <= 0 {
			return apperr.Validation("thresholdMinutes must be positive")
		}
	case TriggerStageChanged:
		if c.StageChanged == nil {
			return mismatch("trigger", string(t))
		}
		if c.StageChanged.ToStageID == uuid.Nil {
			return apperr.Validation("toStageId is required")
		}
	case TriggerLeadCreated:
		if c.LeadCreated == nil {
			return mismatch("trigger", string(t))
		}
	}
	return nil
}

func (c ActionConfig) validate(t ActionType) error {
	variants := 0
	if c.MoveStage != nil {
		variants++
	}
	if c.SendEmail != nil {
		variants++
	}
	if c.SendWhatsApp != nil {
		variants++
	}
	if c.CreateFollowUp != nil {
		variants++
	}
	if c.UpdateLead != nil {
		variants++
	}
	if variants != 1 {
		return apperr.Validation("exactly one action config variant must be set")
	}

	switch t {
	case ActionMoveStage:
		if c.MoveStage == nil {
			return mismatch("action", string(t))
		}
		if c.MoveStage.TargetStageID == uuid.Nil {
			return apperr.Validation("targetStageId is required")
		}
	case ActionSendEmail:
		if c.SendEmail == nil {
			return mismatch("action", string(t))
		}
		if c.SendEmail.Subject == "" || c.SendEmail.Template == "" {
			return apperr.Validation("subject and template are required")
		}
	case ActionSendWhatsApp:
		if c.SendWhatsApp == nil {
			return mismatch("action", string(t))
		}
		if c.SendWhatsApp.Message == "" {
			return apperr.Validation("message is required")
		}
	case ActionCreateFollowUp:
		if c.CreateFollowUp == nil {
			return mismatch("action", string(t))
		}
		if c.CreateFollowUp.Title == "" {
			return apperr.Validation("title is required")
		}
		if c.CreateFollowUp.DueInMinutes <= 0 {
			return apperr.Validation("dueInMinutes must be positive")
		}
	case ActionUpdateLead:
		if c.UpdateLead == nil {
			return mismatch("action", string(t))
		}
		if c.UpdateLead.Temperature == nil && c.UpdateLead.Status == nil && c.UpdateLead.Tags == nil {
			return apperr.Validation("update_lead action must set at least one field")
		}
	}
	return nil
}

func mismatch(kind, declared string) error {
	return apperr.Validation(fmt.Sprintf("%s config does not match declared type %s", kind, declared))
}

// ParseTriggerConfig decodes a raw trigger payload into the variant the
// declared type expects.
func ParseTriggerConfig(t TriggerType, raw json.RawMessage) (TriggerConfig, error) {
	var cfg TriggerConfig
	var err error
	switch t {
	case TriggerTimeElapsed:
		cfg.TimeElapsed = &TimeElapsedTrigger{}
		err = json.Unmarshal(raw, cfg.TimeElapsed)
	case TriggerInactivity:
		cfg.Inactivity = &InactivityTrigger{}
		err = json.Unmarshal(raw, cfg.Inactivity)
	case TriggerStageChanged:
		cfg.StageChanged = &StageChangedTrigger{}
		err = json.Unmarshal(raw, cfg.StageChanged)
	case TriggerLeadCreated:
		cfg.LeadCreated = &LeadCreatedTrigger{}
		err = json.Unmarshal(raw, cfg.LeadCreated)
	default:
		return cfg, apperr.Validation(fmt.Sprintf("unknown trigger type %q", t))
	}
	if err != nil {
		return TriggerConfig{}, apperr.Validation("malformed trigger config: " + err.Error())
	}
	return cfg, nil
}

// ParseActionConfig decodes a raw action payload into the variant the
// declared type expects.
func ParseActionConfig(t ActionType, raw json.RawMessage) (ActionConfig, error) {
	var cfg ActionConfig
	var err error
	switch t {
	case ActionMoveStage:
		cfg.MoveStage = &MoveStageAction{}
		err = json.Unmarshal(raw, cfg.MoveStage)
	case ActionSendEmail:
		cfg.SendEmail = &SendEmailAction{}
		err = json.Unmarshal(raw, cfg.SendEmail)
	case ActionSendWhatsApp:
		cfg.SendWhatsApp = &SendWhatsAppAction{}
		err = json.Unmarshal(raw, cfg.SendWhatsApp)
	case ActionCreateFollowUp:
		cfg.CreateFollowUp = &CreateFollowUpAction{}
		err = json.Unmarshal(raw, cfg.CreateFollowUp)
	case ActionUpdateLead:
		cfg.UpdateLead = &UpdateLeadAction{}
		err = json.Unmarshal(raw, cfg.UpdateLead)
	default:
		return cfg, apperr.Validation(fmt.Sprintf("unknown action type %q", t))
	}
	if err != nil {
		return ActionConfig{}, apperr.Validation("malformed action config: " + err.Error())
	}
	return cfg, nil
}

// DueAt reports whether a periodic rule's predicate holds for a lead at the
// given instant.
func (r *Rule) DueAt(now, createdAt, lastInteractionAt time.Time) bool {
	switch r.TriggerType {
	case TriggerTimeElapsed:
		return now.Sub(createdAt) >= r.Trigger.TimeElapsed.Delay()
	case TriggerInactivity:
		return now.Sub(lastInteractionAt) >= r.Trigger.Inactivity.Threshold()
	default:
		return false
	}
}

// MatchesStageChange reports whether a STAGE_CHANGED rule's predicate holds
// for the given transition.
func (r *Rule) MatchesStageChange(fromStageID *uuid.UUID, toStageID uuid.UUID) bool {
	cfg := r.Trigger.StageChanged
	if cfg == nil || cfg.ToStageID != toStageID {
		return false
	}
	if cfg.FromStageID != nil {
		return fromStageID != nil && *fromStageID == *cfg.FromStageID
	}
	return true
}

// MatchesLeadCreated reports whether a LEAD_CREATED rule's predicate holds.
func (r *Rule) MatchesLeadCreated(assigned bool) bool {
	cfg := r.Trigger.LeadCreated
	if cfg == nil {
		return false
	}
	if cfg.OnlyUnassigned {
		return !assigned
	}
	return true
}
