package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PaymentRepository persists payments to the payments table.
type PaymentRepository struct {
	pool *pgxpool.Pool
	q    ports.Executor
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{pool: db.Pool, q: db.Pool}
}

var _ ports.PaymentRepository = (*PaymentRepository)(nil)

const paymentColumns = `transaction_id, uetr, amount, currency, debtor_account, creditor_account,
	payment_purpose, settlement_method, status, idempotency_key, settlement_batch_id,
	current_step, estimated_completion, created_at, updated_at`

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	_, err := r.q.Exec(ctx, query,
		p.TransactionID, p.UETR, p.Amount.Decimal, p.Currency, p.DebtorAccount, p.CreditorAccount,
		p.Purpose, p.SettlementMethod, p.Status, p.IdempotencyKey, p.SettlementBatchID,
		p.CurrentStep, p.EstimatedCompletion, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewError(domain.ErrCodeDuplicatePayment, "idempotency key already used")
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	row := r.q.QueryRow(ctx, query, id)
	return scanPayment(row)
}

func (r *PaymentRepository) FindByIDForUpdate(ctx context.Context, tx ports.Executor, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1 FOR UPDATE`
	row := tx.QueryRow(ctx, query, id)
	return scanPayment(row)
}

func (r *PaymentRepository) FindByIdempotencyKey(ctx context.Context, key uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE idempotency_key = $1`
	row := r.q.QueryRow(ctx, query, key)
	p, err := scanPayment(row)
	if err != nil {
		if domain.HasCode(err, domain.ErrCodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	return r.update(ctx, r.q, p)
}

func (r *PaymentRepository) UpdateTx(ctx context.Context, tx ports.Executor, p *domain.Payment) error {
	return r.update(ctx, tx, p)
}

func (r *PaymentRepository) update(ctx context.Context, q ports.Executor, p *domain.Payment) error {
	query := `UPDATE payments SET
			status = $1, settlement_batch_id = $2, current_step = $3, estimated_completion = $4,
			updated_at = $5
		WHERE transaction_id = $6`

	cmdTag, err := q.Exec(ctx, query,
		p.Status, p.SettlementBatchID, p.CurrentStep, p.EstimatedCompletion, p.UpdatedAt, p.TransactionID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewNotFoundError("payment", p.TransactionID.String())
	}
	return nil
}

// FindOpenForBatching returns APPROVED payments with no batch assignment
// yet, row-locked with SKIP LOCKED so two concurrent CloseBatch rounds
// never claim the same payment.
func (r *PaymentRepository) FindOpenForBatching(ctx context.Context, tx ports.Executor) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE status = $1 AND settlement_batch_id IS NULL
		FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, query, domain.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("query open-for-batching payments: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Payment, error) {
		return scanPaymentRow(row)
	})
}

func (r *PaymentRepository) CountRecentByAccount(ctx context.Context, accountID string, window time.Duration) (int, error) {
	query := `SELECT COUNT(*) FROM payments WHERE debtor_account = $1 AND created_at >= $2`
	var count int
	err := r.q.QueryRow(ctx, query, accountID, time.Now().Add(-window)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent payments by account: %w", err)
	}
	return count, nil
}

// CurrencyBalances30d aggregates settled (COMPLETED/SETTLED) and pending
// (INITIATED/VALIDATED/SCREENED/APPROVED) amounts by currency over the
// trailing 30 days, feeding Proof-of-Reserves.
func (r *PaymentRepository) CurrencyBalances30d(ctx context.Context) ([]domain.CurrencyBalance, error) {
	query := `SELECT currency,
			COALESCE(SUM(amount) FILTER (WHERE status IN ('SETTLED','COMPLETED')), 0),
			COALESCE(SUM(amount) FILTER (WHERE status IN ('INITIATED','VALIDATED','SCREENED','APPROVED')), 0)
		FROM payments
		WHERE created_at >= $1
		GROUP BY currency`

	rows, err := r.q.Query(ctx, query, time.Now().Add(-30*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("query currency balances: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CurrencyBalance, error) {
		var (
			currency         string
			settled, pending decimal.Decimal
		)
		if err := row.Scan(&currency, &settled, &pending); err != nil {
			return domain.CurrencyBalance{}, err
		}
		return domain.CurrencyBalance{
			Currency:      currency,
			SettledAmount: domain.NewMoney(settled),
			PendingAmount: domain.NewMoney(pending),
		}, nil
	})
}

func (r *PaymentRepository) FindByBatchID(ctx context.Context, batchID uuid.UUID) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE settlement_batch_id = $1 ORDER BY created_at`
	rows, err := r.q.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("query payments by batch id: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Payment, error) {
		return scanPaymentRow(row)
	})
}

const defaultTransactionReportLimit = 100

// FindTransactionReport applies filter's optional predicates, newest first,
// feeding GET /reports/transactions.
func (r *PaymentRepository) FindTransactionReport(ctx context.Context, filter domain.TransactionReportFilter) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StartDate != nil {
		query += ` AND created_at >= ` + arg(*filter.StartDate)
	}
	if filter.EndDate != nil {
		query += ` AND created_at <= ` + arg(*filter.EndDate)
	}
	if filter.Currency != "" {
		query += ` AND currency = ` + arg(filter.Currency)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTransactionReportLimit
	}
	query += ` ORDER BY created_at DESC LIMIT ` + arg(limit)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transaction report: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Payment, error) {
		return scanPaymentRow(row)
	})
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var amount decimal.Decimal
	err := row.Scan(
		&p.TransactionID, &p.UETR, &amount, &p.Currency, &p.DebtorAccount, &p.CreditorAccount,
		&p.Purpose, &p.SettlementMethod, &p.Status, &p.IdempotencyKey, &p.SettlementBatchID,
		&p.CurrentStep, &p.EstimatedCompletion, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("payment", p.TransactionID.String())
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	p.Amount = domain.NewMoney(amount)
	return &p, nil
}

func scanPaymentRow(row pgx.CollectableRow) (*domain.Payment, error) {
	var p domain.Payment
	var amount decimal.Decimal
	err := row.Scan(
		&p.TransactionID, &p.UETR, &amount, &p.Currency, &p.DebtorAccount, &p.CreditorAccount,
		&p.Purpose, &p.SettlementMethod, &p.Status, &p.IdempotencyKey, &p.SettlementBatchID,
		&p.CurrentStep, &p.EstimatedCompletion, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Amount = domain.NewMoney(amount)
	return &p, nil
}
