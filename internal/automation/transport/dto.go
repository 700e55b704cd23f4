// Package transport defines the request/response DTOs for automation rules.
package transport

import (
	"encoding/json"
	"time"

	"plantao_backend/internal/automation/domain"

	"github.com/google/uuid"
)

// CreateRuleRequest registers a new automation rule. Trigger and action
// configs are raw JSON decoded against the declared types.
type CreateRuleRequest struct {
	BoardID       uuid.UUID       `json:"boardId" validate:"required"`
	Name          string          `json:"name" validate:"required,max=200"`
	TriggerType   string          `json:"triggerType" validate:"required"`
	TriggerConfig json.RawMessage `json:"triggerConfig" validate:"required"`
	ActionType    string          `json:"actionType" validate:"required"`
	ActionConfig  json.RawMessage `json:"actionConfig" validate:"required"`
}

// SetActiveRequest toggles a rule.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// RuleResponse is the API representation of an automation rule.
type RuleResponse struct {
	ID             uuid.UUID            `json:"id"`
	OrganizationID uuid.UUID            `json:"organizationId"`
	BoardID        uuid.UUID            `json:"boardId"`
	Name           string               `json:"name"`
	TriggerType    domain.TriggerType   `json:"triggerType"`
	TriggerConfig  domain.TriggerConfig `json:"triggerConfig"`
	ActionType     domain.ActionType    `json:"actionType"`
	ActionConfig   domain.ActionConfig  `json:"actionConfig"`
	Active         bool                 `json:"active"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// RuleListResponse wraps a list of rules.
type RuleListResponse struct {
	Items []RuleResponse `json:"items"`
}
