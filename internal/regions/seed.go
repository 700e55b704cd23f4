package regions

import (
	"context"
	"fmt"
	"os"

	"plantao_backend/internal/regions/service"
	"plantao_backend/internal/regions/transport"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML shape consumed by `regionctl import`.
type SeedFile struct {
	OrganizationID string       `yaml:"organizationId"`
	Regions        []SeedRegion `yaml:"regions"`
}

// SeedRegion is one region definition in a seed file.
type SeedRegion struct {
	Name         string   `yaml:"name"`
	AreaCodes    []string `yaml:"areaCodes"`
	States       []string `yaml:"states"`
	Cities       []string `yaml:"cities"`
	Strategy     string   `yaml:"distributionStrategy"`
	Members      []string `yaml:"memberBrokerIds"`
	Priority     int      `yaml:"priority"`
	RequiresDuty bool     `yaml:"requiresDuty"`
}

// ImportSeedFile loads region definitions from a YAML file and creates them
// through the regular service path so area-code ownership validation applies.
func ImportSeedFile(ctx context.Context, svc *service.Service, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var file SeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	orgID, err := uuid.Parse(file.OrganizationID)
	if err != nil {
		return 0, fmt.Errorf("invalid organizationId: %w", err)
	}

	created := 0
	for _, seed := range file.Regions {
		members := make([]uuid.UUID, 0, len(seed.Members))
		for _, raw := range seed.Members {
			id, err := uuid.Parse(raw)
			if err != nil {
				return created, fmt.Errorf("region %q: invalid member id %q: %w", seed.Name, raw, err)
			}
			members = append(members, id)
		}

		strategy := seed.Strategy
		if strategy == "" {
			strategy = "ROUND_ROBIN"
		}

		_, err := svc.Create(ctx, orgID, transport.UpsertRegionRequest{
			Name:            seed.Name,
			AreaCodes:       seed.AreaCodes,
			States:          seed.States,
			Cities:          seed.Cities,
			Strategy:        strategy,
			MemberBrokerIDs: members,
			Priority:        seed.Priority,
			RequiresDuty:    seed.RequiresDuty,
		})
		if err != nil {
			return created, fmt.Errorf("region %q: %w", seed.Name, err)
		}
		created++
	}

	return created, nil
}
