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

// Availability statuses for a broker.
const (
	AvailabilityAvailable = "AVAILABLE"
	AvailabilityBusy      = "BUSY"
	AvailabilityOffline   = "OFFLINE"
)

// Broker represents the broker database model.
type Broker struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	Name           string    `db:"name"`
	Email          string    `db:"email"`
	Phone          string    `db:"phone"`
	Availability   string    `db:"availability_status"`
	Role           string    `db:"role"`
	Active         bool      `db:"active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

const brokerNotFoundMsg = "broker not found"

// Repository provides database operations for brokers.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new brokers repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new broker.
func (r *Repository) Create(ctx context.Context, b *Broker) error {
	query := `
		INSERT INTO brokers (id, organization_id, name, email, phone, availability_status, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		b.ID, b.OrganizationID, b.Name, b.Email, b.Phone, b.Availability, b.Role, b.Active, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create broker: %w", err)
	}

	return nil
}

// GetByID retrieves a broker by its ID within an organization.
func (r *Repository) GetByID(ctx context.Context, id, organizationID uuid.UUID) (*Broker, error) {
	var b Broker
	query := `SELECT id, organization_id, name, email, phone, availability_status, role, active, created_at, updated_at
		FROM brokers WHERE id = $1 AND organization_id = $2`

	err := r.pool.QueryRow(ctx, query, id, organizationID).Scan(
		&b.ID, &b.OrganizationID, &b.Name, &b.Email, &b.Phone, &b.Availability, &b.Role, &b.Active, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(brokerNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get broker: %w", err)
	}

	return &b, nil
}

// List returns all active brokers of an organization.
func (r *Repository) List(ctx context.Context, organizationID uuid.UUID) ([]Broker, error) {
	query := `SELECT id, organization_id, name, email, phone, availability_status, role, active, created_at, updated_at
		FROM brokers WHERE organization_id = $1 AND active ORDER BY name`

	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list brokers: %w", err)
	}
	defer rows.Close()

	var out []Broker
	for rows.Next() {
		var b Broker
		if err := rows.Scan(
			&b.ID, &b.OrganizationID, &b.Name, &b.Email, &b.Phone, &b.Availability, &b.Role, &b.Active, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan broker: %w", err)
		}
		out = append(out, b)
	}

	return out, rows.Err()
}

// SetAvailability updates the availability status of a broker.
func (r *Repository) SetAvailability(ctx context.Context, id, organizationID uuid.UUID, status string) error {
	query := `UPDATE brokers SET availability_status = $3, updated_at = $4 WHERE id = $1 AND organization_id = $2`

	result, err := r.pool.Exec(ctx, query, id, organizationID, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set broker availability: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(brokerNotFoundMsg)
	}

	return nil
}

// AvailabilityByIDs returns the availability status for the given brokers.
func (r *Repository) AvailabilityByIDs(ctx context.Context, organizationID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	query := `SELECT id, availability_status FROM brokers WHERE organization_id = $1 AND id = ANY($2)`

	rows, err := r.pool.Query(ctx, query, organizationID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load broker availability: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]string, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("failed to scan broker availability: %w", err)
		}
		out[id] = status
	}

	return out, rows.Err()
}

// Deactivate soft-deletes a broker.
func (r *Repository) Deactivate(ctx context.Context, id, organizationID uuid.UUID) error {
	query := `UPDATE brokers SET active = false, updated_at = $3 WHERE id = $1 AND organization_id = $2`

	result, err := r.pool.Exec(ctx, query, id, organizationID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to deactivate broker: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(brokerNotFoundMsg)
	}

	return nil
}
