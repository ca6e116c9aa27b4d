package thresholds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"idswyft/internal/threshold/models"
	id "idswyft/pkg/domain"
	"idswyft/pkg/platform/sentinel"
)

// PostgresStore persists threshold sets in PostgreSQL. Technical overrides
// are stored as a JSONB document so adding an override never needs a
// migration.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Find(ctx context.Context, tenantID id.TenantID) (*models.ThresholdSet, error) {
	query := `
		SELECT tenant_id, version, auto_approve_threshold, manual_review_threshold,
		       require_liveness, require_back_of_id, max_attempts, overrides,
		       updated_at, updated_by
		FROM tenant_thresholds
		WHERE tenant_id = $1
	`
	set := &models.ThresholdSet{}
	var storedTenantID string
	var overridesRaw []byte
	err := s.pool.QueryRow(ctx, query, tenantID.String()).Scan(
		&storedTenantID,
		&set.Version,
		&set.AutoApproveThreshold,
		&set.ManualReviewThreshold,
		&set.RequireLiveness,
		&set.RequireBackOfID,
		&set.MaxAttempts,
		&overridesRaw,
		&set.UpdatedAt,
		&set.UpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find thresholds: %w", err)
	}
	parsed, err := id.ParseTenantID(storedTenantID)
	if err != nil {
		return nil, fmt.Errorf("decode stored tenant id: %w", err)
	}
	set.TenantID = parsed
	if len(overridesRaw) > 0 {
		if err := json.Unmarshal(overridesRaw, &set.Overrides); err != nil {
			return nil, fmt.Errorf("decode threshold overrides: %w", err)
		}
	}
	return set, nil
}

// Save upserts with optimistic concurrency: the row is written only if the
// stored version is exactly one behind the incoming one. A lost race is
// reported as sentinel.ErrConflict so the service can reload and retry.
func (s *PostgresStore) Save(ctx context.Context, set *models.ThresholdSet) error {
	overridesRaw, err := json.Marshal(set.Overrides)
	if err != nil {
		return fmt.Errorf("encode threshold overrides: %w", err)
	}

	query := `
		INSERT INTO tenant_thresholds (
			tenant_id, version, auto_approve_threshold, manual_review_threshold,
			require_liveness, require_back_of_id, max_attempts, overrides,
			updated_at, updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id) DO UPDATE SET
			version                 = EXCLUDED.version,
			auto_approve_threshold  = EXCLUDED.auto_approve_threshold,
			manual_review_threshold = EXCLUDED.manual_review_threshold,
			require_liveness        = EXCLUDED.require_liveness,
			require_back_of_id      = EXCLUDED.require_back_of_id,
			max_attempts            = EXCLUDED.max_attempts,
			overrides               = EXCLUDED.overrides,
			updated_at              = EXCLUDED.updated_at,
			updated_by              = EXCLUDED.updated_by
		WHERE tenant_thresholds.version = EXCLUDED.version - 1
	`
	tag, err := s.pool.Exec(ctx, query,
		set.TenantID.String(),
		set.Version,
		set.AutoApproveThreshold,
		set.ManualReviewThreshold,
		set.RequireLiveness,
		set.RequireBackOfID,
		set.MaxAttempts,
		overridesRaw,
		set.UpdatedAt,
		set.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrConflict
	}
	return nil
}
