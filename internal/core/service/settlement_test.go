package service

import (
	"context"
	"testing"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/shopspring/decimal"
)

func TestSettlementService_CloseBatch_EmptyCandidateSetReturnsSentinel(t *testing.T) {
	payments := newMockPaymentRepository()
	batches := newMockSettlementRepository()
	svc := NewSettlementService(payments, batches, newMockBus(), noopTxRunner, testSettlementConfig(), discardLogger())

	summary, err := svc.CloseBatch(context.Background(), WindowIntraday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.BatchID != "" || summary.TotalTransactions != 0 {
		t.Fatalf("expected sentinel summary, got %+v", summary)
	}
	if len(batches.batches) != 0 {
		t.Fatalf("expected no batch row written for an empty candidate set")
	}
}

// TestSettlementService_CloseBatch_NetsThreeWayCircle implements spec
// scenario 2: three APPROVED payments A->B 100, B->C 40, C->A 20 net to
// {A: -80 PAY, B: +60 RECEIVE, C: +20 RECEIVE}.
func TestSettlementService_CloseBatch_NetsThreeWayCircle(t *testing.T) {
	payments := newMockPaymentRepository()
	batches := newMockSettlementRepository()
	svc := NewSettlementService(payments, batches, newMockBus(), noopTxRunner, testSettlementConfig(), discardLogger())

	now := time.Now().UTC()
	mk := func(debtor, creditor string, amount int64) *domain.Payment {
		p := &domain.Payment{
			TransactionID:   domain.NewTransactionID(),
			Amount:          domain.NewMoney(decimal.NewFromInt(amount)),
			Currency:        "USD",
			DebtorAccount:   debtor,
			CreditorAccount: creditor,
			Status:          domain.StatusApproved,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		payments.byID[p.TransactionID] = p
		return p
	}
	mk("A", "B", 100)
	mk("B", "C", 40)
	mk("C", "A", 20)

	summary, err := svc.CloseBatch(context.Background(), WindowIntraday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalTransactions != 3 {
		t.Fatalf("total transactions = %d, want 3", summary.TotalTransactions)
	}

	byAccount := make(map[string]*domain.NetPosition, len(summary.NetPositions))
	for _, pos := range summary.NetPositions {
		byAccount[pos.AccountID] = pos
	}
	if len(byAccount) != 3 {
		t.Fatalf("expected 3 net positions, got %d", len(byAccount))
	}

	wantAmount := map[string]int64{"A": 80, "B": 60, "C": 20}
	wantDirection := map[string]domain.NetDirection{"A": domain.DirectionPay, "B": domain.DirectionReceive, "C": domain.DirectionReceive}
	for account, want := range wantAmount {
		pos, ok := byAccount[account]
		if !ok {
			t.Fatalf("missing net position for %s", account)
		}
		if !pos.Amount.Decimal.Equal(decimal.NewFromInt(want)) {
			t.Fatalf("%s amount = %v, want %d", account, pos.Amount, want)
		}
		if pos.Direction != wantDirection[account] {
			t.Fatalf("%s direction = %v, want %v", account, pos.Direction, wantDirection[account])
		}
	}

	for _, p := range payments.byID {
		if p.Status != domain.StatusSettled {
			t.Fatalf("payment %s status = %v, want SETTLED", p.TransactionID, p.Status)
		}
		if p.SettlementBatchID == nil {
			t.Fatalf("payment %s missing settlement_batch_id", p.TransactionID)
		}
	}
}

func TestSettlementService_CloseBatch_ExcludesPaymentsBeforeWindowLowerBound(t *testing.T) {
	payments := newMockPaymentRepository()
	batches := newMockSettlementRepository()
	svc := NewSettlementService(payments, batches, newMockBus(), noopTxRunner, testSettlementConfig(), discardLogger())

	stale := &domain.Payment{
		TransactionID:   domain.NewTransactionID(),
		Amount:          domain.NewMoney(decimal.NewFromInt(50)),
		Currency:        "USD",
		DebtorAccount:   "A",
		CreditorAccount: "B",
		Status:          domain.StatusApproved,
		CreatedAt:       time.Now().UTC().Add(-5 * time.Hour),
	}
	payments.byID[stale.TransactionID] = stale

	summary, err := svc.CloseBatch(context.Background(), WindowIntraday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.BatchID != "" {
		t.Fatalf("expected no batch closed when the only candidate predates the intraday lower bound")
	}
}
