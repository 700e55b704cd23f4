// Package service contains the brokers business logic.
package service

import (
	"context"
	"time"

	"plantao_backend/internal/brokers/repository"
	"plantao_backend/internal/brokers/transport"
	"plantao_backend/platform/phone"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the brokers service.
type Repository interface {
	Create(ctx context.Context, b *repository.Broker) error
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (*repository.Broker, error)
	List(ctx context.Context, organizationID uuid.UUID) ([]repository.Broker, error)
	SetAvailability(ctx context.Context, id, organizationID uuid.UUID, status string) error
	Deactivate(ctx context.Context, id, organizationID uuid.UUID) error
}

// Service handles broker management operations.
type Service struct {
	repo Repository
}

// New creates a new brokers service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new broker. New brokers start OFFLINE until a duty
// shift activation or an explicit presence update flips them.
func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, req transport.CreateBrokerRequest) (transport.BrokerResponse, error) {
	now := time.Now()
	broker := &repository.Broker{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          phone.NormalizeE164(req.Phone),
		Availability:   repository.AvailabilityOffline,
		Role:           req.Role,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, broker); err != nil {
		return transport.BrokerResponse{}, err
	}

	return toBrokerResponse(broker), nil
}

// GetByID returns a single broker.
func (s *Service) GetByID(ctx context.Context, id, organizationID uuid.UUID) (transport.BrokerResponse, error) {
	broker, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		return transport.BrokerResponse{}, err
	}
	return toBrokerResponse(broker), nil
}

// List returns all active brokers of the organization.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID) (transport.BrokerListResponse, error) {
	brokers, err := s.repo.List(ctx, organizationID)
	if err != nil {
		return transport.BrokerListResponse{}, err
	}

	items := make([]transport.BrokerResponse, len(brokers))
	for i := range brokers {
		items[i] = toBrokerResponse(&brokers[i])
	}
	return transport.BrokerListResponse{Items: items}, nil
}

// SetAvailability applies an external presence update.
func (s *Service) SetAvailability(ctx context.Context, id, organizationID uuid.UUID, req transport.SetAvailabilityRequest) error {
	return s.repo.SetAvailability(ctx, id, organizationID, req.Status)
}

// Deactivate soft-deletes a broker.
func (s *Service) Deactivate(ctx context.Context, id, organizationID uuid.UUID) error {
	return s.repo.Deactivate(ctx, id, organizationID)
}

func toBrokerResponse(b *repository.Broker) transport.BrokerResponse {
	return transport.BrokerResponse{
		ID:             b.ID,
		OrganizationID: b.OrganizationID,
		Name:           b.Name,
		Email:          b.Email,
		Phone:          b.Phone,
		Availability:   b.Availability,
		Role:           b.Role,
		Active:         b.Active,
		CreatedAt:      b.CreatedAt,
	}
}
