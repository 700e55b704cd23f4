package service

import (
	"errors"
	"strings"

	"plantao_backend/internal/regions/repository"
	"plantao_backend/platform/phone"

	"github.com/google/uuid"
)

// ErrUnresolvableNumber marks a phone number too short to carry an area code.
// Non-fatal: callers persist the lead unresolved and flag it for follow-up.
var ErrUnresolvableNumber = errors.New("phone number cannot be resolved to a region")

// Resolution describes the outcome of a region lookup.
type Resolution struct {
	RegionID uuid.UUID
	AreaCode string
	// MatchedBy is the criterion that won: "area_code", "state" or "city".
	MatchedBy string
}

// resolveRegion finds the region owning a phone number. Precedence: exact
// area-code membership, then state membership (via the fixed DDD to UF map),
// then city membership when a city hint is available. Within one criterion,
// the first region wins; the input slice must already be ordered by priority
// descending then creation order, which ListActive guarantees.
func resolveRegion(regions []repository.Region, rawPhone, cityHint string) (*Resolution, error) {
	ddd, err := phone.AreaCode(rawPhone)
	if err != nil {
		return nil, ErrUnresolvableNumber
	}

	for _, region := range regions {
		if containsFold(region.AreaCodes, ddd) {
			return &Resolution{RegionID: region.ID, AreaCode: ddd, MatchedBy: "area_code"}, nil
		}
	}

	if uf, ok := phone.StateForAreaCode(ddd); ok {
		for _, region := range regions {
			if containsFold(region.States, uf) {
				return &Resolution{RegionID: region.ID, AreaCode: ddd, MatchedBy: "state"}, nil
			}
		}
	}

	if city := strings.TrimSpace(cityHint); city != "" {
		for _, region := range regions {
			if containsFold(region.Cities, city) {
				return &Resolution{RegionID: region.ID, AreaCode: ddd, MatchedBy: "city"}, nil
			}
		}
	}

	return nil, nil
}

func containsFold(haystack []string, needle string) bool {
	for _, item := range haystack {
		if strings.EqualFold(strings.TrimSpace(item), needle) {
			return true
		}
	}
	return false
}
