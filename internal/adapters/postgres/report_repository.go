package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	reportTypeReserves   = "PROOF_OF_RESERVES"
	reportTypeSettlement = "PROOF_OF_SETTLEMENT"
)

// ReportRepository persists generated attestation reports, storing the
// report body as JSONB alongside its type and hash so a caller can fetch
// the latest report of a kind without reconstructing it.
type ReportRepository struct {
	pool *pgxpool.Pool
	q    ports.Executor
}

func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{pool: db.Pool, q: db.Pool}
}

var _ ports.ReportRepository = (*ReportRepository)(nil)

func (r *ReportRepository) SaveProofOfReserves(ctx context.Context, report *domain.ProofOfReserves) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal proof of reserves: %w", err)
	}
	return r.insert(ctx, report.ReportID, reportTypeReserves, report.GeneratedAt, report.AttestationHash, payload)
}

func (r *ReportRepository) SaveProofOfSettlement(ctx context.Context, report *domain.ProofOfSettlement) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal proof of settlement: %w", err)
	}
	return r.insert(ctx, report.ReportID, reportTypeSettlement, report.GeneratedAt, report.MerkleRoot, payload)
}

func (r *ReportRepository) insert(ctx context.Context, id any, reportType string, generatedAt time.Time, hash string, payload []byte) error {
	query := `INSERT INTO reports (report_id, report_type, generated_at, attestation_hash, payload)
		VALUES ($1,$2,$3,$4,$5)`
	_, err := r.q.Exec(ctx, query, id, reportType, generatedAt, hash, payload)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (r *ReportRepository) LatestProofOfReserves(ctx context.Context) (*domain.ProofOfReserves, error) {
	query := `SELECT payload FROM reports WHERE report_type = $1 ORDER BY generated_at DESC LIMIT 1`
	var payload []byte
	err := r.q.QueryRow(ctx, query, reportTypeReserves).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("proof_of_reserves", "latest")
		}
		return nil, fmt.Errorf("query latest proof of reserves: %w", err)
	}
	var report domain.ProofOfReserves
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("unmarshal proof of reserves: %w", err)
	}
	return &report, nil
}
