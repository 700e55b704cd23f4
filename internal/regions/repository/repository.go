package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plantao_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Distribution strategies for a region.
const (
	StrategyRoundRobin   = "ROUND_ROBIN"
	StrategyPriority     = "PRIORITY"
	StrategyAvailability = "AVAILABILITY"
	StrategyManual       = "MANUAL"
)

// Region represents the region database model. MemberBrokerIDs is ordered;
// RoundRobinCursor indexes into it and is mutated only by the distribution
// engine through its atomic assignment operation.
type Region struct {
	ID               uuid.UUID   `db:"id"`
	OrganizationID   uuid.UUID   `db:"organization_id"`
	Name             string      `db:"name"`
	AreaCodes        []string    `db:"area_codes"`
	States           []string    `db:"states"`
	Cities           []string    `db:"cities"`
	Strategy         string      `db:"distribution_strategy"`
	MemberBrokerIDs  []uuid.UUID `db:"member_broker_ids"`
	RoundRobinCursor int         `db:"round_robin_cursor"`
	Priority         int         `db:"priority"`
	RequiresDuty     bool        `db:"requires_duty"`
	Active           bool        `db:"active"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

const regionNotFoundMsg = "region not found"

const regionColumns = `id, organization_id, name, area_codes, states, cities,
	distribution_strategy, member_broker_ids, round_robin_cursor, priority,
	requires_duty, active, created_at, updated_at`

// Repository provides database operations for regions.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new regions repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new region.
func (r *Repository) Create(ctx context.Context, region *Region) error {
	query := `
		INSERT INTO regions (` + regionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		region.ID, region.OrganizationID, region.Name, region.AreaCodes, region.States,
		region.Cities, region.Strategy, region.MemberBrokerIDs, region.RoundRobinCursor,
		region.Priority, region.RequiresDuty, region.Active, region.CreatedAt, region.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create region: %w", err)
	}

	return nil
}

// Update rewrites the administrative fields of a region. The round-robin
// cursor is deliberately not touched here.
func (r *Repository) Update(ctx context.Context, region *Region) error {
	query := `
		UPDATE regions SET
			name = $3,
			area_codes = $4,
			states = $5,
			cities = $6,
			distribution_strategy = $7,
			member_broker_ids = $8,
			priority = $9,
			requires_duty = $10,
			active = $11,
			updated_at = $12
		WHERE id = $1 AND organization_id = $2`

	result, err := r.pool.Exec(ctx, query,
		region.ID, region.OrganizationID, region.Name, region.AreaCodes, region.States,
		region.Cities, region.Strategy, region.MemberBrokerIDs, region.Priority,
		region.RequiresDuty, region.Active, region.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update region: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(regionNotFoundMsg)
	}

	return nil
}

// GetByID retrieves a region by its ID within an organization.
func (r *Repository) GetByID(ctx context.Context, id, organizationID uuid.UUID) (*Region, error) {
	query := `SELECT ` + regionColumns + ` FROM regions WHERE id = $1 AND organization_id = $2`

	row := r.pool.QueryRow(ctx, query, id, organizationID)
	region, err := scanRegion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(regionNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get region: %w", err)
	}

	return region, nil
}

// ListActive returns all active regions of an organization, ordered by
// priority descending then creation order. This ordering doubles as the
// resolution tiebreak order.
func (r *Repository) ListActive(ctx context.Context, organizationID uuid.UUID) ([]Region, error) {
	query := `SELECT ` + regionColumns + ` FROM regions
		WHERE organization_id = $1 AND active
		ORDER BY priority DESC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	defer rows.Close()

	var out []Region
	for rows.Next() {
		region, err := scanRegion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		out = append(out, *region)
	}

	return out, rows.Err()
}

// AreaCodeOwners returns, for any of the given area codes already owned by a
// different active region in the organization, the owning region name keyed
// by area code.
func (r *Repository) AreaCodeOwners(ctx context.Context, organizationID uuid.UUID, codes []string, excludeID uuid.UUID) (map[string]string, error) {
	if len(codes) == 0 {
		return map[string]string{}, nil
	}

	query := `
		SELECT code, name FROM regions, unnest(area_codes) AS code
		WHERE organization_id = $1 AND active AND id != $2 AND code = ANY($3)`

	rows, err := r.pool.Query(ctx, query, organizationID, excludeID, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to check area code ownership: %w", err)
	}
	defer rows.Close()

	owners := make(map[string]string)
	for rows.Next() {
		var code, name string
		if err := rows.Scan(&code, &name); err != nil {
			return nil, fmt.Errorf("failed to scan area code owner: %w", err)
		}
		owners[code] = name
	}

	return owners, rows.Err()
}

// Deactivate soft-deletes a region, releasing its area codes.
func (r *Repository) Deactivate(ctx context.Context, id, organizationID uuid.UUID) error {
	query := `UPDATE regions SET active = false, updated_at = $3 WHERE id = $1 AND organization_id = $2`

	result, err := r.pool.Exec(ctx, query, id, organizationID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to deactivate region: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(regionNotFoundMsg)
	}

	return nil
}

func scanRegion(row pgx.Row) (*Region, error) {
	var region Region
	err := row.Scan(
		&region.ID, &region.OrganizationID, &region.Name, &region.AreaCodes, &region.States,
		&region.Cities, &region.Strategy, &region.MemberBrokerIDs, &region.RoundRobinCursor,
		&region.Priority, &region.RequiresDuty, &region.Active, &region.CreatedAt, &region.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &region, nil
}
