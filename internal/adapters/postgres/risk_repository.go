package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RiskRepository persists risk configuration and assessment history. The
// single-active-row invariant (I4) is enforced at the database level by
// the one_active_risk_config partial unique index; ActivateConfig's
// transaction only closes the narrow window between deactivating the old
// row and inserting the new one.
type RiskRepository struct {
	pool *pgxpool.Pool
	q    ports.Executor
}

func NewRiskRepository(db *DB) *RiskRepository {
	return &RiskRepository{pool: db.Pool, q: db.Pool}
}

var _ ports.RiskRepository = (*RiskRepository)(nil)

func (r *RiskRepository) ActiveConfig(ctx context.Context) (*domain.RiskConfig, error) {
	query := `SELECT id, mode, is_active FROM risk_config WHERE is_active LIMIT 1`
	row := r.q.QueryRow(ctx, query)
	var cfg domain.RiskConfig
	var mode string
	err := row.Scan(&cfg.ID, &mode, &cfg.IsActive)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query active risk config: %w", err)
	}
	cfg.Mode = domain.RiskMode(mode)
	cfg.Thresholds = domain.DefaultThresholdsByMode[cfg.Mode]
	return &cfg, nil
}

// ActivateConfig deactivates whatever row is currently active and inserts
// cfg as the new active row inside a single transaction, then mutates
// cfg.ID with the BIGSERIAL value the insert assigned so the caller can
// use it immediately (e.g. to log or to key a SaveAssessment join).
func (r *RiskRepository) ActivateConfig(ctx context.Context, cfg *domain.RiskConfig) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin activate config tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE risk_config SET is_active = false WHERE is_active`); err != nil {
		return fmt.Errorf("deactivate current risk config: %w", err)
	}

	query := `INSERT INTO risk_config (mode, auto_escalation, is_active, updated_at)
		VALUES ($1, true, true, $2) RETURNING id`
	if err := tx.QueryRow(ctx, query, string(cfg.Mode), time.Now().UTC()).Scan(&cfg.ID); err != nil {
		return fmt.Errorf("insert new risk config: %w", err)
	}
	cfg.IsActive = true

	return tx.Commit(ctx)
}

func (r *RiskRepository) SaveAssessment(ctx context.Context, assessment *domain.RiskAssessment) error {
	factors := make([]string, len(assessment.RiskFactors))
	for i, f := range assessment.RiskFactors {
		factors[i] = string(f)
	}

	query := `INSERT INTO risk_assessments
		(transaction_id, risk_score, risk_factors, recommended_action, assessed_at)
		VALUES ($1,$2,$3,$4,$5)`

	_, err := r.q.Exec(ctx, query,
		assessment.TransactionID, assessment.RiskScore, factors, assessment.RecommendedAction, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save risk assessment: %w", err)
	}
	return nil
}

// RecentBreachCount counts assessments recommending MANUAL_REVIEW within
// window, feeding an auto-escalation decision (spec §4.3's design note on
// escalating risk mode after repeated breaches).
func (r *RiskRepository) RecentBreachCount(ctx context.Context, window time.Duration) (int, error) {
	query := `SELECT COUNT(*) FROM risk_assessments
		WHERE recommended_action = $1 AND assessed_at >= $2`
	var count int
	err := r.q.QueryRow(ctx, query, domain.ActionManualReview, time.Now().Add(-window)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent risk breaches: %w", err)
	}
	return count, nil
}
