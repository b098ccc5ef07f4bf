// Package worker runs the settlement gateway's background loops, grounded
// on the teacher's worker package (ticker-driven Start(ctx), a RunOnce hook
// for tests).
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/service"
)

// SettlementTicker drives periodic intraday batch closes so payments don't
// wait on a caller to invoke close-batch manually.
type SettlementTicker struct {
	settlement *service.SettlementService
	interval   time.Duration
	logger     *slog.Logger
}

func NewSettlementTicker(settlement *service.SettlementService, interval time.Duration, logger *slog.Logger) *SettlementTicker {
	return &SettlementTicker{settlement: settlement, interval: interval, logger: logger}
}

// Start runs RunOnce every tick until ctx is cancelled.
func (t *SettlementTicker) Start(ctx context.Context) {
	t.logger.Info("settlement ticker started", "interval", t.interval)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("settlement ticker stopping")
			return
		case <-ticker.C:
			t.RunOnce(ctx)
		}
	}
}

// RunOnce closes one intraday batch; exported so tests can drive a single
// tick deterministically instead of waiting on the ticker.
func (t *SettlementTicker) RunOnce(ctx context.Context) {
	summary, err := t.settlement.CloseBatch(ctx, service.WindowIntraday)
	if err != nil {
		t.logger.Error("intraday batch close failed", "error", err)
		return
	}
	if summary.BatchID == "" {
		return
	}
	t.logger.Info("intraday batch closed",
		"batch_id", summary.BatchID,
		"total_transactions", summary.TotalTransactions,
	)
}
