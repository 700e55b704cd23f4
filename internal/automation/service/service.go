// Package service contains the administrative side of automation: rule CRUD
// with construction-time config validation.
package service

import (
	"context"
	"time"

	"plantao_backend/internal/automation/domain"
	"plantao_backend/internal/automation/transport"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the rules service.
type Repository interface {
	CreateRule(ctx context.Context, rule *domain.Rule) error
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (*domain.Rule, error)
	ListForOrganization(ctx context.Context, organizationID uuid.UUID) ([]domain.Rule, error)
	SetActive(ctx context.Context, id, organizationID uuid.UUID, active bool) error
}

// Service handles automation rule administration.
type Service struct {
	repo Repository
}

// New creates a new automation rules service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates the typed trigger/action configuration against the
// declared types and persists the rule. Shape mismatches are rejected here,
// never at execution time.
func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, req transport.CreateRuleRequest) (transport.RuleResponse, error) {
	triggerType := domain.TriggerType(req.TriggerType)
	trigger, err := domain.ParseTriggerConfig(triggerType, req.TriggerConfig)
	if err != nil {
		return transport.RuleResponse{}, err
	}

	actionType := domain.ActionType(req.ActionType)
	action, err := domain.ParseActionConfig(actionType, req.ActionConfig)
	if err != nil {
		return transport.RuleResponse{}, err
	}

	now := time.Now()
	rule := &domain.Rule{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		BoardID:        req.BoardID,
		Name:           req.Name,
		TriggerType:    triggerType,
		Trigger:        trigger,
		ActionType:     actionType,
		Action:         action,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := rule.Validate(); err != nil {
		return transport.RuleResponse{}, err
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return transport.RuleResponse{}, err
	}

	return toRuleResponse(rule), nil
}

// GetByID returns a single rule.
func (s *Service) GetByID(ctx context.Context, id, organizationID uuid.UUID) (transport.RuleResponse, error) {
	rule, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		return transport.RuleResponse{}, err
	}
	return toRuleResponse(rule), nil
}

// List returns the organization's rules in creation order.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID) (transport.RuleListResponse, error) {
	rules, err := s.repo.ListForOrganization(ctx, organizationID)
	if err != nil {
		return transport.RuleListResponse{}, err
	}

	items := make([]transport.RuleResponse, len(rules))
	for i := range rules {
		items[i] = toRuleResponse(&rules[i])
	}
	return transport.RuleListResponse{Items: items}, nil
}

// SetActive enables or disables a rule.
func (s *Service) SetActive(ctx context.Context, id, organizationID uuid.UUID, active bool) error {
	return s.repo.SetActive(ctx, id, organizationID, active)
}

func toRuleResponse(rule *domain.Rule) transport.RuleResponse {
	return transport.RuleResponse{
		ID:             rule.ID,
		OrganizationID: rule.OrganizationID,
		BoardID:        rule.BoardID,
		Name:           rule.Name,
		TriggerType:    rule.TriggerType,
		TriggerConfig:  rule.Trigger,
		ActionType:     rule.ActionType,
		ActionConfig:   rule.Action,
		Active:         rule.Active,
		CreatedAt:      rule.CreatedAt,
	}
}
