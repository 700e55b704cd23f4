package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"plantao_backend/internal/automation/domain"
	"plantao_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ruleNotFoundMsg = "automation rule not found"

const ruleColumns = `id, organization_id, board_id, name, trigger_type, trigger_config,
	action_type, action_config, active, created_at, updated_at`

// Repository provides database operations for automation rules and their
// execution records.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new automation repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateRule inserts a new rule. Configs are stored as JSON of the typed
// variant.
func (r *Repository) CreateRule(ctx context.Context, rule *domain.Rule) error {
	triggerJSON, err := json.Marshal(rule.Trigger)
	if err != nil {
		return fmt.Errorf("failed to encode trigger config: %w", err)
	}
	actionJSON, err := json.Marshal(rule.Action)
	if err != nil {
		return fmt.Errorf("failed to encode action config: %w", err)
	}

	query := `
		INSERT INTO automation_rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.pool.Exec(ctx, query,
		rule.ID, rule.OrganizationID, rule.BoardID, rule.Name, rule.TriggerType, triggerJSON,
		rule.ActionType, actionJSON, rule.Active, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create automation rule: %w", err)
	}

	return nil
}

// GetByID retrieves a rule by its ID within an organization.
func (r *Repository) GetByID(ctx context.Context, id, organizationID uuid.UUID) (*domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE id = $1 AND organization_id = $2`

	rule, err := scanRule(r.pool.QueryRow(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(ruleNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get automation rule: %w", err)
	}

	return rule, nil
}

// ListForOrganization returns every rule of the organization, oldest first.
func (r *Repository) ListForOrganization(ctx context.Context, organizationID uuid.UUID) ([]domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules
		WHERE organization_id = $1
		ORDER BY created_at`

	return r.queryRules(ctx, query, organizationID)
}

// ListActiveForBoard returns the board's active rules of the given trigger
// type in creation order, which is also the execution order for event
// dispatch.
func (r *Repository) ListActiveForBoard(ctx context.Context, boardID uuid.UUID, triggerType domain.TriggerType) ([]domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules
		WHERE board_id = $1 AND trigger_type = $2 AND active
		ORDER BY created_at`

	return r.queryRules(ctx, query, boardID, triggerType)
}

// ListActivePeriodic returns every active TIME_ELAPSED and INACTIVITY rule
// across all organizations, the candidate set for a sweep.
func (r *Repository) ListActivePeriodic(ctx context.Context) ([]domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules
		WHERE trigger_type IN ('TIME_ELAPSED', 'INACTIVITY') AND active
		ORDER BY created_at`

	return r.queryRules(ctx, query)
}

// SetActive toggles a rule.
func (r *Repository) SetActive(ctx context.Context, id, organizationID uuid.UUID, active bool) error {
	query := `UPDATE automation_rules SET active = $3, updated_at = $4
		WHERE id = $1 AND organization_id = $2`

	result, err := r.pool.Exec(ctx, query, id, organizationID, active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to toggle automation rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(ruleNotFoundMsg)
	}

	return nil
}

// InsertExecution records that a rule fired for a lead within a sweep
// window. Insert-if-absent: the unique key on (rule, lead, window) makes the
// second of two racing sweeps a no-op, reported as false.
func (r *Repository) InsertExecution(ctx context.Context, ruleID, leadID uuid.UUID, windowID string) (bool, error) {
	query := `
		INSERT INTO automation_executions (rule_id, lead_id, window_id, executed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (rule_id, lead_id, window_id) DO NOTHING`

	result, err := r.pool.Exec(ctx, query, ruleID, leadID, windowID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to record automation execution: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *Repository) queryRules(ctx context.Context, query string, args ...any) ([]domain.Rule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list automation rules: %w", err)
	}
	defer rows.Close()

	var out []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation rule: %w", err)
		}
		out = append(out, *rule)
	}

	return out, rows.Err()
}

func scanRule(row pgx.Row) (*domain.Rule, error) {
	var rule domain.Rule
	var triggerJSON, actionJSON []byte

	err := row.Scan(
		&rule.ID, &rule.OrganizationID, &rule.BoardID, &rule.Name, &rule.TriggerType, &triggerJSON,
		&rule.ActionType, &actionJSON, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(triggerJSON, &rule.Trigger); err != nil {
		return nil, fmt.Errorf("corrupt trigger config for rule %s: %w", rule.ID, err)
	}
	if err := json.Unmarshal(actionJSON, &rule.Action); err != nil {
		return nil, fmt.Errorf("corrupt action config for rule %s: %w", rule.ID, err)
	}

	return &rule, nil
}
