package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plantao_backend/internal/dutyroster/domain"
	"plantao_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DutyShift represents the duty shift database model.
type DutyShift struct {
	ID             uuid.UUID     `db:"id"`
	BrokerID       uuid.UUID     `db:"broker_id"`
	OrganizationID uuid.UUID     `db:"organization_id"`
	DayOfWeek      int           `db:"day_of_week"`
	StartMinute    int           `db:"start_minute"`
	EndMinute      int           `db:"end_minute"`
	Priority       int           `db:"priority"`
	ReceivesLeads  bool          `db:"receives_leads"`
	Status         domain.Status `db:"status"`
	Version        int           `db:"version"`
	CreatedAt      time.Time     `db:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at"`
}

// Window returns the shift's time window for conflict checks.
func (s *DutyShift) Window() domain.Window {
	return domain.Window{DayOfWeek: s.DayOfWeek, StartMinute: s.StartMinute, EndMinute: s.EndMinute}
}

// OnDutyBroker is a broker currently covering an active shift.
type OnDutyBroker struct {
	BrokerID uuid.UUID
	Priority int
}

const shiftNotFoundMsg = "shift not found"

const shiftColumns = `id, broker_id, organization_id, day_of_week, start_minute,
	end_minute, priority, receives_leads, status, version, created_at, updated_at`

// Repository provides database operations for duty shifts.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new duty roster repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new shift.
func (r *Repository) Create(ctx context.Context, shift *DutyShift) error {
	query := `
		INSERT INTO duty_shifts (` + shiftColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		shift.ID, shift.BrokerID, shift.OrganizationID, shift.DayOfWeek, shift.StartMinute,
		shift.EndMinute, shift.Priority, shift.ReceivesLeads, shift.Status, shift.Version,
		shift.CreatedAt, shift.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create shift: %w", err)
	}

	return nil
}

// Update rewrites the schedulable fields of a shift.
func (r *Repository) Update(ctx context.Context, shift *DutyShift) error {
	query := `
		UPDATE duty_shifts SET
			broker_id = $3,
			day_of_week = $4,
			start_minute = $5,
			end_minute = $6,
			priority = $7,
			receives_leads = $8,
			updated_at = $9
		WHERE id = $1 AND organization_id = $2`

	result, err := r.pool.Exec(ctx, query,
		shift.ID, shift.OrganizationID, shift.BrokerID, shift.DayOfWeek, shift.StartMinute,
		shift.EndMinute, shift.Priority, shift.ReceivesLeads, shift.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update shift: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(shiftNotFoundMsg)
	}

	return nil
}

// GetByID retrieves a shift by its ID within an organization.
func (r *Repository) GetByID(ctx context.Context, id, organizationID uuid.UUID) (*DutyShift, error) {
	query := `SELECT ` + shiftColumns + ` FROM duty_shifts WHERE id = $1 AND organization_id = $2`

	row := r.pool.QueryRow(ctx, query, id, organizationID)
	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(shiftNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}

	return shift, nil
}

// ListBlockingForBroker returns the broker's shifts whose status still
// occupies a time window (SCHEDULED or ACTIVE).
func (r *Repository) ListBlockingForBroker(ctx context.Context, brokerID, organizationID uuid.UUID) ([]DutyShift, error) {
	query := `SELECT ` + shiftColumns + ` FROM duty_shifts
		WHERE broker_id = $1 AND organization_id = $2 AND status IN ('SCHEDULED', 'ACTIVE')
		ORDER BY day_of_week, start_minute`

	return r.queryShifts(ctx, query, brokerID, organizationID)
}

// ListForOrganization returns every shift of the organization, optionally
// filtered to a single broker.
func (r *Repository) ListForOrganization(ctx context.Context, organizationID uuid.UUID, brokerID *uuid.UUID) ([]DutyShift, error) {
	if brokerID != nil {
		query := `SELECT ` + shiftColumns + ` FROM duty_shifts
			WHERE organization_id = $1 AND broker_id = $2
			ORDER BY day_of_week, start_minute`
		return r.queryShifts(ctx, query, organizationID, *brokerID)
	}

	query := `SELECT ` + shiftColumns + ` FROM duty_shifts
		WHERE organization_id = $1
		ORDER BY day_of_week, start_minute`
	return r.queryShifts(ctx, query, organizationID)
}

// TransitionStatus performs an optimistic status transition. The update only
// applies while the row still holds the expected status, so the second of
// two racing transitions affects zero rows and reports false.
func (r *Repository) TransitionStatus(ctx context.Context, id, organizationID uuid.UUID, from, to domain.Status) (bool, error) {
	query := `
		UPDATE duty_shifts
		SET status = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND organization_id = $2 AND status = $3`

	result, err := r.pool.Exec(ctx, query, id, organizationID, from, to, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to transition shift status: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ListOnDuty returns brokers with an ACTIVE, lead-receiving shift whose
// window contains the given instant, ordered by shift priority descending.
func (r *Repository) ListOnDuty(ctx context.Context, organizationID uuid.UUID, dayOfWeek, minuteOfDay int) ([]OnDutyBroker, error) {
	query := `
		SELECT broker_id, priority FROM duty_shifts
		WHERE organization_id = $1
		  AND status = 'ACTIVE'
		  AND receives_leads
		  AND day_of_week = $2
		  AND start_minute <= $3
		  AND end_minute > $3
		ORDER BY priority DESC, broker_id`

	rows, err := r.pool.Query(ctx, query, organizationID, dayOfWeek, minuteOfDay)
	if err != nil {
		return nil, fmt.Errorf("failed to list on-duty brokers: %w", err)
	}
	defer rows.Close()

	var out []OnDutyBroker
	for rows.Next() {
		var b OnDutyBroker
		if err := rows.Scan(&b.BrokerID, &b.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan on-duty broker: %w", err)
		}
		out = append(out, b)
	}

	return out, rows.Err()
}

func (r *Repository) queryShifts(ctx context.Context, query string, args ...interface{}) ([]DutyShift, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	defer rows.Close()

	var out []DutyShift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		out = append(out, *shift)
	}

	return out, rows.Err()
}

func scanShift(row pgx.Row) (*DutyShift, error) {
	var shift DutyShift
	err := row.Scan(
		&shift.ID, &shift.BrokerID, &shift.OrganizationID, &shift.DayOfWeek, &shift.StartMinute,
		&shift.EndMinute, &shift.Priority, &shift.ReceivesLeads, &shift.Status, &shift.Version,
		&shift.CreatedAt, &shift.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &shift, nil
}
