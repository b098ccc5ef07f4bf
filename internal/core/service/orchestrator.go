package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/google/uuid"
)

// InitiateRequest is the validated input to Initiate.
type InitiateRequest struct {
	Amount           domain.Money
	Currency         string
	DebtorAccount    string
	CreditorAccount  string
	Purpose          domain.PaymentPurpose
	SettlementMethod domain.SettlementMethod
}

// PaymentResponse is the Initiate response shape (§4.2).
type PaymentResponse struct {
	TransactionID uuid.UUID
	UETR          uuid.UUID
	Status        domain.PaymentStatus
	Timestamp     time.Time
}

// OrchestratorService implements the Payment Orchestrator (§4.2): the
// single writer of new payments rows and the only component permitted to
// cancel one.
type OrchestratorService struct {
	payments ports.PaymentRepository
	bus      ports.EventBus
	logger   *slog.Logger
}

func NewOrchestratorService(payments ports.PaymentRepository, bus ports.EventBus, logger *slog.Logger) *OrchestratorService {
	return &OrchestratorService{payments: payments, bus: bus, logger: logger}
}

// Initiate validates the request, inserts a payments row in status
// INITIATED keyed by the caller-supplied idempotency key, and publishes
// payment.initiated. An insert conflict on idempotency_key returns the
// existing row rather than erroring — defense-in-depth alongside the
// idempotency core's own dedup.
func (s *OrchestratorService) Initiate(ctx context.Context, req InitiateRequest, idemKey uuid.UUID) (*PaymentResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be greater than zero")
	}
	if len(req.Currency) != 3 {
		return nil, domain.NewValidationError("currency", "must be a 3-letter ISO 4217 code")
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		TransactionID:    domain.NewTransactionID(),
		UETR:             domain.NewReference(),
		Amount:           req.Amount,
		Currency:         req.Currency,
		DebtorAccount:    req.DebtorAccount,
		CreditorAccount:  req.CreditorAccount,
		Purpose:          req.Purpose,
		SettlementMethod: req.SettlementMethod,
		Status:           domain.StatusInitiated,
		IdempotencyKey:   idemKey,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		if domain.HasCode(err, domain.ErrCodeDuplicatePayment) {
			existing, findErr := s.payments.FindByIdempotencyKey(ctx, idemKey)
			if findErr != nil {
				return nil, domain.WrapError(domain.ErrCodeInternal, "failed to load payment after idempotency conflict", findErr)
			}
			if existing != nil {
				return responseFrom(existing), nil
			}
		}
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to persist payment", err)
	}

	if s.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"message_id":     domain.NewReference(),
			"transaction_id": payment.TransactionID,
			"uetr":           payment.UETR,
			"status":         payment.Status,
			"currency":       payment.Currency,
		})
		if err := s.bus.Publish(ctx, "payment.initiated", payload); err != nil {
			s.logger.Warn("failed to publish payment.initiated", "transaction_id", payment.TransactionID, "error", err)
		}
	}

	return responseFrom(payment), nil
}

func responseFrom(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		TransactionID: p.TransactionID,
		UETR:          p.UETR,
		Status:        p.Status,
		Timestamp:     p.CreatedAt,
	}
}

// GetStatus returns the payment's current row, NOT_FOUND if absent.
func (s *OrchestratorService) GetStatus(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return s.payments.FindByID(ctx, id)
}

// Cancel transitions a payment to CANCELLED, permitted only while it has
// not yet reached SETTLED or COMPLETED (P8, scenario 6).
func (s *OrchestratorService) Cancel(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payment.IsSettledOrLater() {
		return nil, domain.NewError(domain.ErrCodePaymentCancelled, "payment has already settled and cannot be cancelled")
	}
	if err := payment.CanTransitionTo(domain.StatusCancelled); err != nil {
		return nil, err
	}

	payment.Status = domain.StatusCancelled
	payment.UpdatedAt = time.Now().UTC()
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to persist cancellation", err)
	}

	if s.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"message_id":     domain.NewReference(),
			"transaction_id": payment.TransactionID,
			"status":         payment.Status,
		})
		if err := s.bus.Publish(ctx, "payment.cancelled", payload); err != nil {
			s.logger.Warn("failed to publish payment.cancelled", "transaction_id", payment.TransactionID, "error", err)
		}
	}

	return payment, nil
}
