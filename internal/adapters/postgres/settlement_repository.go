package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SettlementRepository persists settlement batches and their net
// positions. net_positions is stored as a single JSONB column alongside
// the batch row; FindNetPositionsByBatch decodes it back rather than
// requiring a join, since a batch's positions are only ever read together.
type SettlementRepository struct {
	pool *pgxpool.Pool
	q    ports.Executor
}

func NewSettlementRepository(db *DB) *SettlementRepository {
	return &SettlementRepository{pool: db.Pool, q: db.Pool}
}

var _ ports.SettlementRepository = (*SettlementRepository)(nil)

type netPositionDoc struct {
	AccountID string              `json:"account_id"`
	Currency  string              `json:"currency"`
	Amount    decimal.Decimal     `json:"amount"`
	Direction domain.NetDirection `json:"direction"`
}

func (r *SettlementRepository) CreateBatch(ctx context.Context, tx ports.Executor, batch *domain.SettlementBatch) error {
	query := `INSERT INTO settlement_batches
		(batch_id, window, total_transactions, total_amount, net_positions, status, closed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := tx.Exec(ctx, query,
		batch.BatchID, batch.Window, batch.TotalTransactions, batch.TotalAmount.Decimal,
		json.RawMessage("[]"), batch.Status, batch.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("create settlement batch: %w", err)
	}
	return nil
}

func (r *SettlementRepository) UpdateBatch(ctx context.Context, tx ports.Executor, batch *domain.SettlementBatch) error {
	query := `UPDATE settlement_batches SET status = $1 WHERE batch_id = $2`
	cmdTag, err := tx.Exec(ctx, query, batch.Status, batch.BatchID)
	if err != nil {
		return fmt.Errorf("update settlement batch: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewNotFoundError("settlement_batch", batch.BatchID.String())
	}
	return nil
}

func (r *SettlementRepository) FindBatchByID(ctx context.Context, id uuid.UUID) (*domain.SettlementBatch, error) {
	query := `SELECT batch_id, window, total_transactions, total_amount, status, closed_at
		FROM settlement_batches WHERE batch_id = $1`
	return scanBatch(r.q.QueryRow(ctx, query, id))
}

// SaveNetPositions encodes positions as JSON and stores them on their
// shared batch row — all positions passed in one call belong to the same
// batch (the caller computes them together from computeNetPositions).
func (r *SettlementRepository) SaveNetPositions(ctx context.Context, tx ports.Executor, positions []*domain.NetPosition) error {
	if len(positions) == 0 {
		return nil
	}
	docs := make([]netPositionDoc, len(positions))
	for i, p := range positions {
		docs[i] = netPositionDoc{AccountID: p.AccountID, Currency: p.Currency, Amount: p.Amount.Decimal, Direction: p.Direction}
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshal net positions: %w", err)
	}

	query := `UPDATE settlement_batches SET net_positions = $1 WHERE batch_id = $2`
	_, err = tx.Exec(ctx, query, raw, positions[0].BatchID)
	if err != nil {
		return fmt.Errorf("save net positions: %w", err)
	}
	return nil
}

func (r *SettlementRepository) FindNetPositionsByBatch(ctx context.Context, batchID uuid.UUID) ([]*domain.NetPosition, error) {
	query := `SELECT net_positions FROM settlement_batches WHERE batch_id = $1`
	var raw []byte
	if err := r.q.QueryRow(ctx, query, batchID).Scan(&raw); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("settlement_batch", batchID.String())
		}
		return nil, fmt.Errorf("query net positions: %w", err)
	}
	var docs []netPositionDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("unmarshal net positions: %w", err)
	}
	positions := make([]*domain.NetPosition, len(docs))
	for i, d := range docs {
		positions[i] = &domain.NetPosition{
			BatchID: batchID, AccountID: d.AccountID, Currency: d.Currency,
			Amount: domain.NewMoney(d.Amount), Direction: d.Direction,
		}
	}
	return positions, nil
}

func (r *SettlementRepository) FindBatchesClosedOnDate(ctx context.Context, date time.Time) ([]*domain.SettlementBatch, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `SELECT batch_id, window, total_transactions, total_amount, status, closed_at
		FROM settlement_batches WHERE closed_at >= $1 AND closed_at < $2`
	rows, err := r.q.Query(ctx, query, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("query batches closed on date: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.SettlementBatch, error) {
		return scanBatchRow(row)
	})
}

func scanBatch(row pgx.Row) (*domain.SettlementBatch, error) {
	var b domain.SettlementBatch
	var amount decimal.Decimal
	err := row.Scan(&b.BatchID, &b.Window, &b.TotalTransactions, &amount, &b.Status, &b.ClosedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("settlement_batch", b.BatchID.String())
		}
		return nil, fmt.Errorf("scan settlement batch: %w", err)
	}
	b.TotalAmount = domain.NewMoney(amount)
	return &b, nil
}

func scanBatchRow(row pgx.CollectableRow) (*domain.SettlementBatch, error) {
	var b domain.SettlementBatch
	var amount decimal.Decimal
	if err := row.Scan(&b.BatchID, &b.Window, &b.TotalTransactions, &amount, &b.Status, &b.ClosedAt); err != nil {
		return nil, err
	}
	b.TotalAmount = domain.NewMoney(amount)
	return &b, nil
}
