package service

import (
	"context"
	"testing"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestOrchestratorService_Initiate_RejectsNonPositiveAmount(t *testing.T) {
	svc := NewOrchestratorService(newMockPaymentRepository(), newMockBus(), discardLogger())
	req := InitiateRequest{Amount: domain.ZeroMoney(), Currency: "USD"}

	_, err := svc.Initiate(context.Background(), req, uuid.New())
	if domain.CodeOf(err) != domain.ErrCodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestOrchestratorService_Initiate_RejectsBadCurrencyLength(t *testing.T) {
	svc := NewOrchestratorService(newMockPaymentRepository(), newMockBus(), discardLogger())
	req := InitiateRequest{Amount: domain.NewMoney(decimal.NewFromInt(100)), Currency: "US"}

	_, err := svc.Initiate(context.Background(), req, uuid.New())
	if domain.CodeOf(err) != domain.ErrCodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestOrchestratorService_Initiate_PublishesAndReturnsInitiatedStatus(t *testing.T) {
	repo := newMockPaymentRepository()
	bus := newMockBus()
	svc := NewOrchestratorService(repo, bus, discardLogger())

	req := InitiateRequest{
		Amount:           domain.NewMoney(decimal.NewFromInt(100)),
		Currency:         "USD",
		DebtorAccount:    "A",
		CreditorAccount:  "B",
		Purpose:          domain.PurposeTrade,
		SettlementMethod: domain.MethodPVP,
	}

	resp, err := svc.Initiate(context.Background(), req, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.StatusInitiated {
		t.Fatalf("status = %v, want INITIATED", resp.Status)
	}
	if len(bus.published) != 1 || bus.published[0] != "payment.initiated" {
		t.Fatalf("expected a single payment.initiated publish, got %v", bus.published)
	}
}

func TestOrchestratorService_Initiate_DuplicateIdempotencyKeyReturnsExistingRow(t *testing.T) {
	repo := newMockPaymentRepository()
	svc := NewOrchestratorService(repo, newMockBus(), discardLogger())
	idemKey := uuid.New()
	req := InitiateRequest{Amount: domain.NewMoney(decimal.NewFromInt(100)), Currency: "USD"}

	first, err := svc.Initiate(context.Background(), req, idemKey)
	if err != nil {
		t.Fatalf("unexpected error on first initiate: %v", err)
	}

	second, err := svc.Initiate(context.Background(), req, idemKey)
	if err != nil {
		t.Fatalf("unexpected error on duplicate initiate: %v", err)
	}
	if second.TransactionID != first.TransactionID {
		t.Fatalf("duplicate initiate returned a different transaction_id: %v vs %v", second.TransactionID, first.TransactionID)
	}
}

func TestOrchestratorService_Cancel_AllowedBeforeSettlement(t *testing.T) {
	repo := newMockPaymentRepository()
	bus := newMockBus()
	svc := NewOrchestratorService(repo, bus, discardLogger())

	p := &domain.Payment{TransactionID: domain.NewTransactionID(), Status: domain.StatusApproved}
	repo.byID[p.TransactionID] = p

	cancelled, err := svc.Cancel(context.Background(), p.TransactionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Fatalf("status = %v, want CANCELLED", cancelled.Status)
	}
	if len(bus.published) != 1 || bus.published[0] != "payment.cancelled" {
		t.Fatalf("expected a single payment.cancelled publish, got %v", bus.published)
	}
}

func TestOrchestratorService_Cancel_RejectsAfterSettlement(t *testing.T) {
	repo := newMockPaymentRepository()
	svc := NewOrchestratorService(repo, newMockBus(), discardLogger())

	p := &domain.Payment{TransactionID: domain.NewTransactionID(), Status: domain.StatusSettled}
	repo.byID[p.TransactionID] = p

	_, err := svc.Cancel(context.Background(), p.TransactionID)
	if domain.CodeOf(err) != domain.ErrCodePaymentCancelled {
		t.Fatalf("expected PAYMENT_CANCELLED, got %v", err)
	}
}

func TestOrchestratorService_GetStatus_NotFound(t *testing.T) {
	svc := NewOrchestratorService(newMockPaymentRepository(), newMockBus(), discardLogger())
	_, err := svc.GetStatus(context.Background(), uuid.New())
	if domain.CodeOf(err) != domain.ErrCodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
