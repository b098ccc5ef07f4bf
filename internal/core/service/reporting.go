package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
)

// proofOfReservesValidity is how long a generated Proof-of-Reserves report
// is presented as current before a caller should regenerate it.
const proofOfReservesValidity = 24 * time.Hour

// ReportingService implements the read-only reporting component (§4.6):
// Proof-of-Reserves and Proof-of-Settlement. Neither operation mutates a
// payment or batch row.
type ReportingService struct {
	payments ports.PaymentRepository
	batches  ports.SettlementRepository
	reports  ports.ReportRepository
	bus      ports.EventBus
	logger   *slog.Logger
}

func NewReportingService(payments ports.PaymentRepository, batches ports.SettlementRepository, reports ports.ReportRepository, bus ports.EventBus, logger *slog.Logger) *ReportingService {
	return &ReportingService{payments: payments, batches: batches, reports: reports, bus: bus, logger: logger}
}

// ProofOfReserves groups the last 30 days of payments by currency, derives
// a mocked reserve ratio (settled x1.10) and liabilities (pending), and
// attests the result with a SHA-256 hash over the report id, totals, and
// generation timestamp.
func (s *ReportingService) ProofOfReserves(ctx context.Context) (*domain.ProofOfReserves, error) {
	balances, err := s.payments.CurrencyBalances30d(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to load currency balances", err)
	}

	reportID := domain.NewTransactionID()
	generatedAt := time.Now().UTC()

	currencies := make([]domain.CurrencyReserve, 0, len(balances))
	var totalReserves, totalLiabilities float64
	for _, b := range balances {
		rate := domain.UsdRate(b.Currency)
		reserves := b.SettledAmount.Float64() * domain.ReserveMultiplier * rate
		liabilities := b.PendingAmount.Float64() * rate
		currencies = append(currencies, domain.CurrencyReserve{
			Currency:       b.Currency,
			SettledAmount:  b.SettledAmount,
			PendingAmount:  b.PendingAmount,
			ReservesUSD:    reserves,
			LiabilitiesUSD: liabilities,
		})
		totalReserves += reserves
		totalLiabilities += liabilities
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i].Currency < currencies[j].Currency })

	ratio := math.Inf(1)
	if totalLiabilities > 0 {
		ratio = totalReserves / totalLiabilities
	}

	report := &domain.ProofOfReserves{
		ReportID:            reportID,
		GeneratedAt:         generatedAt,
		TotalReservesUSD:    totalReserves,
		TotalLiabilitiesUSD: totalLiabilities,
		ReserveRatio:        ratio,
		Currencies:          currencies,
		AttestationHash:     attestationHash(reportID.String(), totalReserves, totalLiabilities, generatedAt),
		ValidUntil:          generatedAt.Add(proofOfReservesValidity),
	}

	if err := s.reports.SaveProofOfReserves(ctx, report); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to persist proof of reserves", err)
	}

	if s.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"message_id":         domain.NewReference(),
			"report_id":          reportID,
			"total_reserves_usd": totalReserves,
			"reserve_ratio":      ratio,
		})
		if err := s.bus.Publish(ctx, "reports.proof_of_reserves_generated", payload); err != nil {
			s.logger.Warn("failed to publish reports.proof_of_reserves_generated", "error", err)
		}
	}

	return report, nil
}

func attestationHash(reportID string, reservesUSD, liabilitiesUSD float64, generatedAt time.Time) string {
	data := fmt.Sprintf("%s%v%v%s", reportID, reservesUSD, liabilitiesUSD, generatedAt.Format(time.RFC3339Nano))
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// ProofOfSettlement joins settlement_batches closed on the given UTC
// calendar date to their SETTLED payments, emitting an ISO-20022-shaped
// manifest plus a merkle root over the sorted transaction ids.
func (s *ReportingService) ProofOfSettlement(ctx context.Context, date time.Time) (*domain.ProofOfSettlement, error) {
	date = date.UTC()

	batches, err := s.batches.FindBatchesClosedOnDate(ctx, date)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to load settlement batches", err)
	}

	reportID := domain.NewTransactionID()
	generatedAt := time.Now().UTC()

	summaries := make([]domain.SettledBatchSummary, 0, len(batches))
	batchRefs := make([]string, 0, len(batches))
	var allTxIDs []string
	var totalUSD float64
	var totalCount int

	for _, b := range batches {
		payments, err := s.payments.FindByBatchID(ctx, b.BatchID)
		if err != nil {
			return nil, domain.WrapError(domain.ErrCodeInternal, "failed to load batch payments", err)
		}

		txIDs := make([]string, 0, len(payments))
		var batchUSD float64
		for _, p := range payments {
			if p.Status != domain.StatusSettled {
				continue
			}
			txIDs = append(txIDs, p.TransactionID.String())
			batchUSD += p.Amount.Float64() * domain.UsdRate(p.Currency)
		}

		summaries = append(summaries, domain.SettledBatchSummary{
			BatchID:        b.BatchID.String(),
			Window:         b.Window,
			ClosedAt:       b.ClosedAt,
			TransactionIDs: txIDs,
			TotalAmountUSD: batchUSD,
		})
		batchRefs = append(batchRefs, b.BatchID.String())
		allTxIDs = append(allTxIDs, txIDs...)
		totalUSD += batchUSD
		totalCount += len(txIDs)
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ClosedAt.Before(summaries[j].ClosedAt) })

	report := &domain.ProofOfSettlement{
		ReportID:                 reportID,
		SettlementDate:           date.Format("2006-01-02"),
		GeneratedAt:              generatedAt,
		TotalSettledTransactions: totalCount,
		TotalSettledAmountUSD:    totalUSD,
		Batches:                  summaries,
		Manifest: domain.ISO20022Manifest{
			MessageType:          "camt.053.001.08",
			CreationDateTime:     generatedAt,
			NumberOfTransactions: totalCount,
			ControlSum:           totalUSD,
			SettlementMethod:     "NETTING",
			BatchReferences:      batchRefs,
		},
		MerkleRoot: merkleRoot(allTxIDs),
	}

	if err := s.reports.SaveProofOfSettlement(ctx, report); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to persist proof of settlement", err)
	}

	if s.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"message_id":                 domain.NewReference(),
			"report_id":                  reportID,
			"settlement_date":            report.SettlementDate,
			"total_settled_transactions": totalCount,
		})
		if err := s.bus.Publish(ctx, "reports.proof_of_settlement_generated", payload); err != nil {
			s.logger.Warn("failed to publish reports.proof_of_settlement_generated", "error", err)
		}
	}

	return report, nil
}

// TransactionReport returns payments matching filter for GET
// /reports/transactions. Unlike ProofOfReserves/ProofOfSettlement this is a
// plain filtered read with no attestation or persisted artifact.
func (s *ReportingService) TransactionReport(ctx context.Context, filter domain.TransactionReportFilter) ([]*domain.Payment, error) {
	payments, err := s.payments.FindTransactionReport(ctx, filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to load transaction report", err)
	}
	return payments, nil
}

func merkleRoot(transactionIDs []string) string {
	sorted := append([]string(nil), transactionIDs...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "")))
	return hex.EncodeToString(sum[:])
}
