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

// FollowUp represents a follow-up task attached to a lead. Created by
// operators or by the CREATE_FOLLOWUP automation action.
type FollowUp struct {
	ID             uuid.UUID  `db:"id"`
	OrganizationID uuid.UUID  `db:"organization_id"`
	LeadID         uuid.UUID  `db:"lead_id"`
	BrokerID       *uuid.UUID `db:"broker_id"`
	Title          string     `db:"title"`
	DueAt          time.Time  `db:"due_at"`
	Done           bool       `db:"done"`
	CreatedAt      time.Time  `db:"created_at"`
}

const followUpColumns = `id, organization_id, lead_id, broker_id, title, due_at, done, created_at`

// Repository provides database operations for follow-up tasks.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new follow-ups repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new follow-up task.
func (r *Repository) Create(ctx context.Context, f *FollowUp) error {
	query := `
		INSERT INTO follow_ups (` + followUpColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		f.ID, f.OrganizationID, f.LeadID, f.BrokerID, f.Title, f.DueAt, f.Done, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create follow-up: %w", err)
	}

	return nil
}

// ListForLead returns a lead's follow-ups, soonest due first.
func (r *Repository) ListForLead(ctx context.Context, leadID, organizationID uuid.UUID) ([]FollowUp, error) {
	query := `SELECT ` + followUpColumns + ` FROM follow_ups
		WHERE lead_id = $1 AND organization_id = $2
		ORDER BY due_at`

	rows, err := r.pool.Query(ctx, query, leadID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	defer rows.Close()

	var out []FollowUp
	for rows.Next() {
		var f FollowUp
		if err := rows.Scan(&f.ID, &f.OrganizationID, &f.LeadID, &f.BrokerID, &f.Title, &f.DueAt, &f.Done, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan follow-up: %w", err)
		}
		out = append(out, f)
	}

	return out, rows.Err()
}

// MarkDone completes a follow-up task.
func (r *Repository) MarkDone(ctx context.Context, id, organizationID uuid.UUID) error {
	query := `UPDATE follow_ups SET done = true WHERE id = $1 AND organization_id = $2`

	result, err := r.pool.Exec(ctx, query, id, organizationID)
	if err != nil {
		return fmt.Errorf("failed to complete follow-up: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("follow-up not found")
	}

	return nil
}

// GetByID retrieves a single follow-up.
func (r *Repository) GetByID(ctx context.Context, id, organizationID uuid.UUID) (*FollowUp, error) {
	query := `SELECT ` + followUpColumns + ` FROM follow_ups WHERE id = $1 AND organization_id = $2`

	var f FollowUp
	err := r.pool.QueryRow(ctx, query, id, organizationID).
		Scan(&f.ID, &f.OrganizationID, &f.LeadID, &f.BrokerID, &f.Title, &f.DueAt, &f.Done, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("follow-up not found")
		}
		return nil, fmt.Errorf("failed to get follow-up: %w", err)
	}

	return &f, nil
}
