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

// Lead lifecycle statuses.
const (
	StatusOpen      = "OPEN"
	StatusConverted = "CONVERTED"
	StatusLost      = "LOST"
)

// Routing statuses describing the distribution outcome for a lead.
const (
	RoutingAssigned       = "ASSIGNED"
	RoutingUnassigned     = "UNASSIGNED"
	RoutingManualRequired = "MANUAL_REQUIRED"
	RoutingUnresolved     = "UNRESOLVED"
)

// Lead represents the lead database model.
type Lead struct {
	ID                    uuid.UUID  `db:"id"`
	OrganizationID        uuid.UUID  `db:"organization_id"`
	BoardID               uuid.UUID  `db:"board_id"`
	StageID               uuid.UUID  `db:"stage_id"`
	Name                  string     `db:"name"`
	Phone                 string     `db:"phone"`
	PhoneDigits           string     `db:"phone_digits"`
	Email                 *string    `db:"email"`
	City                  *string    `db:"city"`
	Source                string     `db:"source"`
	RegionID              *uuid.UUID `db:"region_id"`
	AssignedBrokerID      *uuid.UUID `db:"assigned_broker_id"`
	RoutingStatus         string     `db:"routing_status"`
	DistributionTimestamp *time.Time `db:"distribution_timestamp"`
	LastInteractionAt     time.Time  `db:"last_interaction_at"`
	Temperature           string     `db:"temperature"`
	Status                string     `db:"status"`
	Tags                  []string   `db:"tags"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

// FieldPatch is the typed set of lead fields automation may update. Nil
// fields are left untouched.
type FieldPatch struct {
	Temperature *string
	Status      *string
	Tags        []string
}

// Filter narrows List results.
type Filter struct {
	RoutingStatus *string
	BrokerID      *uuid.UUID
	BoardID       *uuid.UUID
}

const leadNotFoundMsg = "lead not found"

const leadColumns = `id, organization_id, board_id, stage_id, name, phone, phone_digits,
	email, city, source, region_id, assigned_broker_id, routing_status,
	distribution_timestamp, last_interaction_at, temperature, status, tags,
	created_at, updated_at`

// Repository provides database operations for leads.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new lead.
func (r *Repository) Create(ctx context.Context, lead *Lead) error {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := r.pool.Exec(ctx, query,
		lead.ID, lead.OrganizationID, lead.BoardID, lead.StageID, lead.Name, lead.Phone,
		lead.PhoneDigits, lead.Email, lead.City, lead.Source, lead.RegionID,
		lead.AssignedBrokerID, lead.RoutingStatus, lead.DistributionTimestamp,
		lead.LastInteractionAt, lead.Temperature, lead.Status, lead.Tags,
		lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	return nil
}

// GetByID retrieves a lead by its ID within an organization.
func (r *Repository) GetByID(ctx context.Context, id, organizationID uuid.UUID) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND organization_id = $2`

	row := r.pool.QueryRow(ctx, query, id, organizationID)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	return lead, nil
}

// List returns the organization's leads, newest first.
func (r *Repository) List(ctx context.Context, organizationID uuid.UUID, filter Filter) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE organization_id = $1`
	args := []any{organizationID}

	if filter.RoutingStatus != nil {
		args = append(args, *filter.RoutingStatus)
		query += fmt.Sprintf(" AND routing_status = $%d", len(args))
	}
	if filter.BrokerID != nil {
		args = append(args, *filter.BrokerID)
		query += fmt.Sprintf(" AND assigned_broker_id = $%d", len(args))
	}
	if filter.BoardID != nil {
		args = append(args, *filter.BoardID)
		query += fmt.Sprintf(" AND board_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	return r.queryLeads(ctx, query, args...)
}

// ListOpenByBoard returns every open lead on a board. Candidate set for
// periodic automation sweeps.
func (r *Repository) ListOpenByBoard(ctx context.Context, boardID uuid.UUID) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads
		WHERE board_id = $1 AND status = 'OPEN'
		ORDER BY created_at`

	return r.queryLeads(ctx, query, boardID)
}

// SetRoutingStatus flags the routing outcome of an unassigned lead.
func (r *Repository) SetRoutingStatus(ctx context.Context, id, organizationID uuid.UUID, status string) error {
	query := `UPDATE leads SET routing_status = $3, updated_at = $4
		WHERE id = $1 AND organization_id = $2`

	result, err := r.pool.Exec(ctx, query, id, organizationID, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set routing status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}

	return nil
}

// Assign writes a direct broker assignment, used for manual routing.
func (r *Repository) Assign(ctx context.Context, id, organizationID, brokerID uuid.UUID, at time.Time) error {
	query := `UPDATE leads SET
			assigned_broker_id = $3,
			distribution_timestamp = $4,
			routing_status = 'ASSIGNED',
			updated_at = $4
		WHERE id = $1 AND organization_id = $2`

	result, err := r.pool.Exec(ctx, query, id, organizationID, brokerID, at)
	if err != nil {
		return fmt.Errorf("failed to assign lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}

	return nil
}

// MoveStage moves the lead to another stage and counts as an interaction.
func (r *Repository) MoveStage(ctx context.Context, id, organizationID, stageID uuid.UUID, at time.Time) error {
	query := `UPDATE leads SET stage_id = $3, last_interaction_at = $4, updated_at = $4
		WHERE id = $1 AND organization_id = $2`

	result, err := r.pool.Exec(ctx, query, id, organizationID, stageID, at)
	if err != nil {
		return fmt.Errorf("failed to move lead stage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}

	return nil
}

// Touch bumps the lead's last interaction timestamp.
func (r *Repository) Touch(ctx context.Context, id, organizationID uuid.UUID, at time.Time) error {
	query := `UPDATE leads SET last_interaction_at = $3, updated_at = $3
		WHERE id = $1 AND organization_id = $2`

	result, err := r.pool.Exec(ctx, query, id, organizationID, at)
	if err != nil {
		return fmt.Errorf("failed to touch lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}

	return nil
}

// UpdateFields applies a typed field patch to a lead.
func (r *Repository) UpdateFields(ctx context.Context, id, organizationID uuid.UUID, patch FieldPatch) error {
	query := `UPDATE leads SET
			temperature = COALESCE($3, temperature),
			status = COALESCE($4, status),
			tags = COALESCE($5, tags),
			updated_at = $6
		WHERE id = $1 AND organization_id = $2`

	result, err := r.pool.Exec(ctx, query, id, organizationID, patch.Temperature, patch.Status, patch.Tags, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update lead fields: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}

	return nil
}

// AssignedTodayCounts returns, per broker, how many leads were assigned to
// them since local midnight. Brokers with zero assignments are absent.
func (r *Repository) AssignedTodayCounts(ctx context.Context, organizationID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT assigned_broker_id, COUNT(*) FROM leads
		WHERE organization_id = $1
		  AND assigned_broker_id = ANY($2)
		  AND distribution_timestamp >= date_trunc('day', now())
		GROUP BY assigned_broker_id`

	return r.queryCounts(ctx, query, organizationID, ids)
}

// OpenLeadCounts returns, per broker, how many open leads they currently
// hold. Brokers with zero open leads are absent.
func (r *Repository) OpenLeadCounts(ctx context.Context, organizationID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	query := `
		SELECT assigned_broker_id, COUNT(*) FROM leads
		WHERE organization_id = $1
		  AND assigned_broker_id = ANY($2)
		  AND status = 'OPEN'
		GROUP BY assigned_broker_id`

	return r.queryCounts(ctx, query, organizationID, ids)
}

func (r *Repository) queryCounts(ctx context.Context, query string, organizationID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := r.pool.Query(ctx, query, organizationID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query lead counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var brokerID uuid.UUID
		var count int
		if err := rows.Scan(&brokerID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan lead count: %w", err)
		}
		counts[brokerID] = count
	}

	return counts, rows.Err()
}

func (r *Repository) queryLeads(ctx context.Context, query string, args ...any) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		out = append(out, *lead)
	}

	return out, rows.Err()
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.OrganizationID, &lead.BoardID, &lead.StageID, &lead.Name, &lead.Phone,
		&lead.PhoneDigits, &lead.Email, &lead.City, &lead.Source, &lead.RegionID,
		&lead.AssignedBrokerID, &lead.RoutingStatus, &lead.DistributionTimestamp,
		&lead.LastInteractionAt, &lead.Temperature, &lead.Status, &lead.Tags,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}
