// Package service contains the follow-up task logic shared by the admin API
// and the CREATE_FOLLOWUP automation action.
package service

import (
	"context"
	"strings"
	"time"

	"plantao_backend/internal/followups/repository"
	"plantao_backend/internal/followups/transport"
	"plantao_backend/platform/apperr"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the service.
type Repository interface {
	Create(ctx context.Context, f *repository.FollowUp) error
	ListForLead(ctx context.Context, leadID, organizationID uuid.UUID) ([]repository.FollowUp, error)
	MarkDone(ctx context.Context, id, organizationID uuid.UUID) error
}

// Service handles follow-up operations.
type Service struct {
	repo Repository
}

// New creates a new follow-ups service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a follow-up task for a lead.
func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, req transport.CreateFollowUpRequest) (transport.FollowUpResponse, error) {
	if strings.TrimSpace(req.Title) == "" {
		return transport.FollowUpResponse{}, apperr.Validation("follow-up title is required")
	}

	f := &repository.FollowUp{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		LeadID:         req.LeadID,
		BrokerID:       req.BrokerID,
		Title:          req.Title,
		DueAt:          req.DueAt,
		CreatedAt:      time.Now(),
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return transport.FollowUpResponse{}, err
	}

	return toResponse(f), nil
}

// CreateFromAutomation creates a follow-up on behalf of an automation rule,
// due after the given delay.
func (s *Service) CreateFromAutomation(ctx context.Context, organizationID, leadID uuid.UUID, brokerID *uuid.UUID, title string, due time.Duration) error {
	f := &repository.FollowUp{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		LeadID:         leadID,
		BrokerID:       brokerID,
		Title:          title,
		DueAt:          time.Now().Add(due),
		CreatedAt:      time.Now(),
	}
	return s.repo.Create(ctx, f)
}

// ListForLead returns a lead's follow-ups.
func (s *Service) ListForLead(ctx context.Context, leadID, organizationID uuid.UUID) (transport.FollowUpListResponse, error) {
	items, err := s.repo.ListForLead(ctx, leadID, organizationID)
	if err != nil {
		return transport.FollowUpListResponse{}, err
	}

	out := make([]transport.FollowUpResponse, len(items))
	for i := range items {
		out[i] = toResponse(&items[i])
	}
	return transport.FollowUpListResponse{Items: out}, nil
}

// Complete marks a follow-up as done.
func (s *Service) Complete(ctx context.Context, id, organizationID uuid.UUID) error {
	return s.repo.MarkDone(ctx, id, organizationID)
}

func toResponse(f *repository.FollowUp) transport.FollowUpResponse {
	return transport.FollowUpResponse{
		ID:             f.ID,
		OrganizationID: f.OrganizationID,
		LeadID:         f.LeadID,
		BrokerID:       f.BrokerID,
		Title:          f.Title,
		DueAt:          f.DueAt,
		Done:           f.Done,
		CreatedAt:      f.CreatedAt,
	}
}
