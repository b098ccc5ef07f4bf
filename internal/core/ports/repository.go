package ports

import (
	"context"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/google/uuid"
)

// PaymentRepository defines the interface for payment data access.
type PaymentRepository interface {
	// Create saves a new payment. Returns a domain.GatewayError with
	// ErrCodeDuplicatePayment if the idempotency key already exists.
	Create(ctx context.Context, payment *domain.Payment) error

	// FindByID retrieves a payment by its transaction id.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// FindByIDForUpdate locks the row (SELECT ... FOR UPDATE) for a status
	// transition performed inside a transaction.
	FindByIDForUpdate(ctx context.Context, tx Executor, id uuid.UUID) (*domain.Payment, error)

	// FindByIdempotencyKey retrieves a payment by the client-supplied key.
	FindByIdempotencyKey(ctx context.Context, key uuid.UUID) (*domain.Payment, error)

	// Update persists the mutable fields of a payment (status, batch
	// assignment, timestamps).
	Update(ctx context.Context, payment *domain.Payment) error

	// UpdateTx is Update scoped to an explicit transaction, used when a
	// status transition must be atomic with a batch assignment.
	UpdateTx(ctx context.Context, tx Executor, payment *domain.Payment) error

	// FindOpenForBatching retrieves APPROVED payments with no
	// settlement_batch_id assigned yet, locked with SKIP LOCKED so
	// concurrent batch assignment rounds never double-claim a payment. The
	// caller applies the window's lower-bound filter.
	FindOpenForBatching(ctx context.Context, tx Executor) ([]*domain.Payment, error)

	// CountRecentByAccount supports the HIGH_FREQUENCY risk factor.
	CountRecentByAccount(ctx context.Context, accountID string, window time.Duration) (int, error)

	// CurrencyBalances30d aggregates settled (SETTLED/COMPLETED) and pending
	// (INITIATED/VALIDATED/SCREENED/APPROVED) amounts by currency over the
	// last 30 days, feeding the Proof-of-Reserves report.
	CurrencyBalances30d(ctx context.Context) ([]domain.CurrencyBalance, error)

	// FindByBatchID returns the payments settled under a given batch,
	// ordered by created_at (oldest first), feeding the
	// Proof-of-Settlement report.
	FindByBatchID(ctx context.Context, batchID uuid.UUID) ([]*domain.Payment, error)

	// FindTransactionReport returns payments matching filter, newest first,
	// feeding the GET /reports/transactions report.
	FindTransactionReport(ctx context.Context, filter domain.TransactionReportFilter) ([]*domain.Payment, error)
}

// SettlementRepository defines persistence for settlement batches and the
// net positions produced by netting them.
type SettlementRepository interface {
	CreateBatch(ctx context.Context, tx Executor, batch *domain.SettlementBatch) error
	UpdateBatch(ctx context.Context, tx Executor, batch *domain.SettlementBatch) error
	FindBatchByID(ctx context.Context, id uuid.UUID) (*domain.SettlementBatch, error)
	SaveNetPositions(ctx context.Context, tx Executor, positions []*domain.NetPosition) error
	FindNetPositionsByBatch(ctx context.Context, batchID uuid.UUID) ([]*domain.NetPosition, error)

	// FindBatchesClosedOnDate returns batches whose closed_at falls on the
	// given UTC calendar date, feeding the Proof-of-Settlement report.
	FindBatchesClosedOnDate(ctx context.Context, date time.Time) ([]*domain.SettlementBatch, error)
}

// RiskRepository defines persistence for risk configuration and assessment
// history. The single-active-row invariant on risk config is enforced by
// ActivateConfig running inside a transaction against a partial unique
// index, not by application logic alone.
type RiskRepository interface {
	ActiveConfig(ctx context.Context) (*domain.RiskConfig, error)
	ActivateConfig(ctx context.Context, cfg *domain.RiskConfig) error
	SaveAssessment(ctx context.Context, assessment *domain.RiskAssessment) error
	RecentBreachCount(ctx context.Context, window time.Duration) (int, error)
}

// ReportRepository defines persistence for generated attestation reports.
type ReportRepository interface {
	SaveProofOfReserves(ctx context.Context, report *domain.ProofOfReserves) error
	SaveProofOfSettlement(ctx context.Context, report *domain.ProofOfSettlement) error
	LatestProofOfReserves(ctx context.Context) (*domain.ProofOfReserves, error)
}
