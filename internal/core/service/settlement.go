package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementWindow is the batching horizon requested by CloseBatch.
type SettlementWindow string

const (
	WindowIntraday SettlementWindow = "intraday"
	WindowEOD      SettlementWindow = "EOD"
)

// defaultIntradayLookback is how far back an intraday window reaches (§4.4)
// when no config value is supplied (e.g. existing callers of
// WindowLowerBound outside the service).
const defaultIntradayLookback = 4 * time.Hour

// WindowLowerBound returns the selection predicate's lower created_at
// bound for the given window, relative to now. lookback is the intraday
// horizon (config.SettlementConfig.IntradayLookback); a zero value falls
// back to defaultIntradayLookback.
func WindowLowerBound(window SettlementWindow, now time.Time, lookback time.Duration) time.Time {
	if window == WindowIntraday {
		if lookback <= 0 {
			lookback = defaultIntradayLookback
		}
		return now.Add(-lookback)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// BatchClosedSummary is returned by CloseBatch; a sentinel with an empty
// BatchID signals an empty candidate set (no batch row was written).
type BatchClosedSummary struct {
	BatchID           string
	Window            SettlementWindow
	TotalTransactions int
	TotalAmount       domain.Money
	NetPositions      []*domain.NetPosition
	ClosedAt          time.Time
}

// SettlementConfig carries the Settlement Engine's tunables in from
// config.SettlementConfig without this package depending on the config
// package.
type SettlementConfig struct {
	IntradayLookback time.Duration
	AmountTolerance  float64
}

// SettlementService implements the Settlement Engine (§4.4): window
// selection, atomic batch assignment, and multilateral netting.
type SettlementService struct {
	payments         ports.PaymentRepository
	batches          ports.SettlementRepository
	bus              ports.EventBus
	withTx           TxRunner
	cfg              SettlementConfig
	nettingTolerance decimal.Decimal
	logger           *slog.Logger
}

// TxRunner executes fn inside a single DB transaction, supplying the
// scoped Executor to every repository call made within it — the same
// shape as the teacher's PaymentRepository.WithTx, generalized to a
// free function so SE can coordinate two repositories (payments,
// settlement batches) in one transaction.
type TxRunner func(ctx context.Context, fn func(tx ports.Executor) error) error

func NewSettlementService(payments ports.PaymentRepository, batches ports.SettlementRepository, bus ports.EventBus, withTx TxRunner, cfg SettlementConfig, logger *slog.Logger) *SettlementService {
	tolerance := nettingToleranceDecimal
	if cfg.AmountTolerance > 0 {
		tolerance = decimal.NewFromFloat(cfg.AmountTolerance)
	}
	return &SettlementService{
		payments:         payments,
		batches:          batches,
		bus:              bus,
		withTx:           withTx,
		cfg:              cfg,
		nettingTolerance: tolerance,
		logger:           logger,
	}
}

// CloseBatch selects eligible payments for window, assigns them to a new
// batch, computes net positions, and transitions them to SETTLED, all
// within one transaction (§4.4 steps 1-6).
func (s *SettlementService) CloseBatch(ctx context.Context, window SettlementWindow) (*BatchClosedSummary, error) {
	now := time.Now().UTC()
	var summary *BatchClosedSummary

	err := s.withTx(ctx, func(tx ports.Executor) error {
		candidates, err := s.payments.FindOpenForBatching(ctx, tx)
		if err != nil {
			return domain.WrapError(domain.ErrCodeSettlementFailed, "failed to select candidate payments", err)
		}
		lowerBound := WindowLowerBound(window, now, s.cfg.IntradayLookback)
		var eligible []*domain.Payment
		for _, p := range candidates {
			if !p.CreatedAt.Before(lowerBound) {
				eligible = append(eligible, p)
			}
		}

		if len(eligible) == 0 {
			summary = &BatchClosedSummary{Window: window, ClosedAt: now}
			return nil
		}

		batchID := domain.NewTransactionID()
		positions := computeNetPositions(batchID, eligible, s.nettingTolerance)

		total := domain.ZeroMoney()
		for _, p := range eligible {
			total = total.Add(p.Amount)
		}

		batch := &domain.SettlementBatch{
			BatchID:           batchID,
			Window:            string(window),
			TotalTransactions: len(eligible),
			TotalAmount:       total,
			Status:            domain.BatchClosed,
			ClosedAt:          now,
		}
		if err := s.batches.CreateBatch(ctx, tx, batch); err != nil {
			return domain.WrapError(domain.ErrCodeSettlementFailed, "failed to create settlement batch", err)
		}
		if err := s.batches.SaveNetPositions(ctx, tx, positions); err != nil {
			return domain.WrapError(domain.ErrCodeSettlementFailed, "failed to persist net positions", err)
		}

		for _, p := range eligible {
			p.SettlementBatchID = &batchID
			p.Status = domain.StatusSettled
			p.UpdatedAt = now
			if err := s.payments.UpdateTx(ctx, tx, p); err != nil {
				return domain.WrapError(domain.ErrCodeSettlementFailed, "failed to transition payment to settled", err)
			}
		}

		summary = &BatchClosedSummary{
			BatchID:           batchID.String(),
			Window:            window,
			TotalTransactions: len(eligible),
			TotalAmount:       total,
			NetPositions:      positions,
			ClosedAt:          now,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	if summary.BatchID != "" && s.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"message_id":        domain.NewReference(),
			"batch_id":          summary.BatchID,
			"window":            summary.Window,
			"transaction_count": summary.TotalTransactions,
		})
		if err := s.bus.Publish(ctx, "settlement.batch_closed", payload); err != nil {
			s.logger.Warn("failed to publish settlement.batch_closed", "batch_id", summary.BatchID, "error", err)
		}
	}

	return summary, nil
}

// nettingToleranceDecimal is the |ε| ≤ 0.01 default rounding tolerance from
// I3, used when config.SettlementConfig.AmountTolerance is unset.
var nettingToleranceDecimal = decimal.RequireFromString(domain.NettingTolerance())

// computeNetPositions implements the multilateral netting algorithm:
// maintain a signed running total per (account, currency), then emit one
// NetPosition per bucket whose magnitude exceeds tolerance, sorted by
// (account, currency) for deterministic output (I3).
func computeNetPositions(batchID uuid.UUID, payments []*domain.Payment, tolerance decimal.Decimal) []*domain.NetPosition {
	running := make(map[domain.NetPositionKey]domain.Money)
	order := make([]domain.NetPositionKey, 0)

	touch := func(key domain.NetPositionKey, delta domain.Money) {
		cur, ok := running[key]
		if !ok {
			order = append(order, key)
			cur = domain.ZeroMoney()
		}
		running[key] = cur.Add(delta)
	}

	for _, p := range payments {
		debtorKey := domain.NetPositionKey{AccountID: p.DebtorAccount, Currency: p.Currency}
		creditorKey := domain.NetPositionKey{AccountID: p.CreditorAccount, Currency: p.Currency}
		touch(debtorKey, p.Amount.Neg())
		touch(creditorKey, p.Amount)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].AccountID != order[j].AccountID {
			return order[i].AccountID < order[j].AccountID
		}
		return order[i].Currency < order[j].Currency
	})

	positions := make([]*domain.NetPosition, 0, len(order))
	for _, key := range order {
		amount := running[key]
		if !amount.ExceedsTolerance(tolerance) {
			continue
		}
		positions = append(positions, &domain.NetPosition{
			BatchID:   batchID,
			AccountID: key.AccountID,
			Currency:  key.Currency,
			Amount:    amount.Abs(),
			Direction: domain.ResolveDirection(amount),
		})
	}
	return positions
}
