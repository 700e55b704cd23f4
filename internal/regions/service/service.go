// Package service contains the region registry business logic: administrative
// CRUD with area-code ownership validation, and phone-to-region resolution.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"plantao_backend/internal/regions/repository"
	"plantao_backend/internal/regions/transport"
	"plantao_backend/platform/apperr"

	"github.com/google/uuid"
)

// Repository defines the data access interface needed by the regions service.
type Repository interface {
	Create(ctx context.Context, region *repository.Region) error
	Update(ctx context.Context, region *repository.Region) error
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (*repository.Region, error)
	ListActive(ctx context.Context, organizationID uuid.UUID) ([]repository.Region, error)
	AreaCodeOwners(ctx context.Context, organizationID uuid.UUID, codes []string, excludeID uuid.UUID) (map[string]string, error)
	Deactivate(ctx context.Context, id, organizationID uuid.UUID) error
}

// Service handles region registry operations.
type Service struct {
	repo Repository
}

// New creates a new regions service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new region after validating that none of its area codes
// is owned by another active region of the same organization.
func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, req transport.UpsertRegionRequest) (transport.RegionResponse, error) {
	codes := normalizeCodes(req.AreaCodes)
	if err := s.checkAreaCodeOwnership(ctx, organizationID, codes, uuid.Nil); err != nil {
		return transport.RegionResponse{}, err
	}

	now := time.Now()
	region := &repository.Region{
		ID:               uuid.New(),
		OrganizationID:   organizationID,
		Name:             req.Name,
		AreaCodes:        codes,
		States:           normalizeStates(req.States),
		Cities:           req.Cities,
		Strategy:         req.Strategy,
		MemberBrokerIDs:  req.MemberBrokerIDs,
		RoundRobinCursor: -1,
		Priority:         req.Priority,
		RequiresDuty:     req.RequiresDuty,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, region); err != nil {
		return transport.RegionResponse{}, err
	}

	return toRegionResponse(region), nil
}

// Update replaces the administrative fields of an existing region. The
// round-robin cursor is owned by the distribution engine and never updated
// through this path.
func (s *Service) Update(ctx context.Context, id, organizationID uuid.UUID, req transport.UpsertRegionRequest) (transport.RegionResponse, error) {
	region, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		return transport.RegionResponse{}, err
	}

	codes := normalizeCodes(req.AreaCodes)
	if err := s.checkAreaCodeOwnership(ctx, organizationID, codes, id); err != nil {
		return transport.RegionResponse{}, err
	}

	region.Name = req.Name
	region.AreaCodes = codes
	region.States = normalizeStates(req.States)
	region.Cities = req.Cities
	region.Strategy = req.Strategy
	region.MemberBrokerIDs = req.MemberBrokerIDs
	region.Priority = req.Priority
	region.RequiresDuty = req.RequiresDuty
	region.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, region); err != nil {
		return transport.RegionResponse{}, err
	}

	return toRegionResponse(region), nil
}

// GetByID returns a single region.
func (s *Service) GetByID(ctx context.Context, id, organizationID uuid.UUID) (transport.RegionResponse, error) {
	region, err := s.repo.GetByID(ctx, id, organizationID)
	if err != nil {
		return transport.RegionResponse{}, err
	}
	return toRegionResponse(region), nil
}

// List returns all active regions of the organization.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID) (transport.RegionListResponse, error) {
	regions, err := s.repo.ListActive(ctx, organizationID)
	if err != nil {
		return transport.RegionListResponse{}, err
	}

	items := make([]transport.RegionResponse, len(regions))
	for i := range regions {
		items[i] = toRegionResponse(&regions[i])
	}
	return transport.RegionListResponse{Items: items}, nil
}

// Remove deactivates a region, releasing its area codes for reuse.
func (s *Service) Remove(ctx context.Context, id, organizationID uuid.UUID) error {
	return s.repo.Deactivate(ctx, id, organizationID)
}

// Resolve finds the region owning a phone number. A nil result with a nil
// error means the number is valid but no region claims it; the caller keeps
// the lead unassigned. ErrUnresolvableNumber is returned for numbers too
// short to carry an area code.
func (s *Service) Resolve(ctx context.Context, organizationID uuid.UUID, rawPhone, cityHint string) (*Resolution, error) {
	regions, err := s.repo.ListActive(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return resolveRegion(regions, rawPhone, cityHint)
}

func (s *Service) checkAreaCodeOwnership(ctx context.Context, organizationID uuid.UUID, codes []string, excludeID uuid.UUID) error {
	owners, err := s.repo.AreaCodeOwners(ctx, organizationID, codes, excludeID)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		return nil
	}

	details := make([]string, 0, len(owners))
	for code, name := range owners {
		details = append(details, fmt.Sprintf("area code %s is owned by region %q", code, name))
	}
	return apperr.Validation("area codes already owned by another active region").WithDetails(details)
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if trimmed := strings.TrimSpace(code); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeStates(states []string) []string {
	out := make([]string, 0, len(states))
	for _, state := range states {
		if trimmed := strings.TrimSpace(state); trimmed != "" {
			out = append(out, strings.ToUpper(trimmed))
		}
	}
	return out
}

func toRegionResponse(region *repository.Region) transport.RegionResponse {
	return transport.RegionResponse{
		ID:               region.ID,
		OrganizationID:   region.OrganizationID,
		Name:             region.Name,
		AreaCodes:        region.AreaCodes,
		States:           region.States,
		Cities:           region.Cities,
		Strategy:         region.Strategy,
		MemberBrokerIDs:  region.MemberBrokerIDs,
		RoundRobinCursor: region.RoundRobinCursor,
		Priority:         region.Priority,
		RequiresDuty:     region.RequiresDuty,
		Active:           region.Active,
		CreatedAt:        region.CreatedAt,
	}
}
