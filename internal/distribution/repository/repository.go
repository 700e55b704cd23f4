// Package repository implements the persistence side of lead distribution:
// the atomic round-robin cursor advance and the plain assignment write.
package repository

import (
	"context"
	"fmt"
	"time"

	"plantao_backend/internal/distribution"
	regionrepo "plantao_backend/internal/regions/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository performs assignment writes against postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new distribution repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AssignRoundRobin advances the region's round-robin cursor to the next
// eligible member and assigns the lead to that broker, all inside one
// transaction. The region row is locked first, so concurrent assignments
// serialize on the cursor and never pick the same "next" broker twice.
// When a full cycle over the member list finds nobody eligible, the cursor
// is left unmoved and ErrNoEligibleBroker is returned.
func (r *Repository) AssignRoundRobin(ctx context.Context, region *regionrepo.Region, leadID uuid.UUID, eligible map[uuid.UUID]bool, at time.Time) (uuid.UUID, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin assignment transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var cursor int
	var members []uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT round_robin_cursor, member_broker_ids FROM regions
		 WHERE id = $1 AND organization_id = $2 FOR UPDATE`,
		region.ID, region.OrganizationID,
	).Scan(&cursor, &members)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to lock region cursor: %w", err)
	}

	selected, index, ok := nextEligible(members, cursor, eligible)
	if !ok {
		return uuid.Nil, distribution.ErrNoEligibleBroker
	}

	if _, err := tx.Exec(ctx,
		`UPDATE regions SET round_robin_cursor = $3, updated_at = $4
		 WHERE id = $1 AND organization_id = $2`,
		region.ID, region.OrganizationID, index, at,
	); err != nil {
		return uuid.Nil, fmt.Errorf("failed to advance round-robin cursor: %w", err)
	}

	if err := assignLead(ctx, tx, leadID, region.OrganizationID, selected, at); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit assignment: %w", err)
	}

	return selected, nil
}

// Assign writes the lead assignment outside of any cursor bookkeeping. Used
// by the PRIORITY and AVAILABILITY strategies.
func (r *Repository) Assign(ctx context.Context, leadID, organizationID, brokerID uuid.UUID, at time.Time) error {
	return assignLead(ctx, r.pool, leadID, organizationID, brokerID, at)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func assignLead(ctx context.Context, db execer, leadID, organizationID, brokerID uuid.UUID, at time.Time) error {
	result, err := db.Exec(ctx,
		`UPDATE leads SET
			assigned_broker_id = $3,
			distribution_timestamp = $4,
			routing_status = 'ASSIGNED',
			updated_at = $4
		 WHERE id = $1 AND organization_id = $2`,
		leadID, organizationID, brokerID, at,
	)
	if err != nil {
		return fmt.Errorf("failed to assign lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("lead %s not found for assignment", leadID)
	}
	return nil
}

// nextEligible scans the member list cyclically starting after the cursor
// and returns the first eligible member with its index.
func nextEligible(members []uuid.UUID, cursor int, eligible map[uuid.UUID]bool) (uuid.UUID, int, bool) {
	n := len(members)
	if n == 0 {
		return uuid.Nil, 0, false
	}
	for step := 1; step <= n; step++ {
		index := ((cursor+step)%n + n) % n
		if eligible[members[index]] {
			return members[index], index, true
		}
	}
	return uuid.Nil, 0, false
}
