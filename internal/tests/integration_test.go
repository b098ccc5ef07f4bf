package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/deltran/settlement-gateway/internal/adapters/cache"
	"github.com/deltran/settlement-gateway/internal/adapters/handler"
	"github.com/deltran/settlement-gateway/internal/adapters/postgres"
	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/deltran/settlement-gateway/internal/core/service"
	"github.com/deltran/settlement-gateway/internal/providers"
	"github.com/deltran/settlement-gateway/internal/testhelpers"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type testStack struct {
	db     *postgres.DB
	mux    *http.ServeMux
	orch   *service.OrchestratorService
	settle *service.SettlementService
}

func setupStack(t *testing.T) *testStack {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tdb := testhelpers.SetupTestDatabase(t)
	t.Cleanup(func() { tdb.Cleanup(t) })

	db, err := postgres.Connect(ctx, tdb.Config, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Pool.Exec(ctx, testhelpers.MigrationSQL(t))
	require.NoError(t, err)

	tredis := testhelpers.SetupTestRedis(t)
	t.Cleanup(func() { tredis.Cleanup(t) })

	redisCache, err := cache.Connect(ctx, tredis.Options, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisCache.Close() })

	paymentRepo := postgres.NewPaymentRepository(db)
	settlementRepo := postgres.NewSettlementRepository(db)
	riskRepo := postgres.NewRiskRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	txRunner := postgres.NewTxRunner(db)

	quoteProviders := make([]ports.QuoteProvider, 0)
	for _, p := range providers.All() {
		quoteProviders = append(quoteProviders, p)
	}

	// A nil EventBus is tolerated everywhere: every service guards
	// publishes with `if s.bus != nil`, so integration tests don't need a
	// live NATS container to exercise the write paths.
	riskCfg := service.RiskConfig{
		DefaultMode:         domain.RiskModeMedium,
		HighValueThreshold:  100_000,
		HighFrequencyCount:  10,
		HighFrequencyWindow: 24 * time.Hour,
		ModeCacheTTL:        300 * time.Second,
		MetricsCacheTTL:     60 * time.Second,
	}
	liquidityCfg := service.LiquidityConfig{
		DispatchBudget: 120 * time.Millisecond,
		MaxSources:     5,
		QuoteCacheTTL:  domain.QuoteTTL,
	}
	settlementCfg := service.SettlementConfig{IntradayLookback: 4 * time.Hour}

	orchestratorSvc := service.NewOrchestratorService(paymentRepo, nil, logger)
	settlementSvc := service.NewSettlementService(paymentRepo, settlementRepo, nil, service.TxRunner(txRunner), settlementCfg, logger)
	riskSvc := service.NewRiskService(riskRepo, redisCache, nil, riskCfg, logger)
	liquiditySvc := service.NewLiquidityService(quoteProviders, redisCache, nil, liquidityCfg, logger)
	reportingSvc := service.NewReportingService(paymentRepo, settlementRepo, reportRepo, nil, logger)

	h := handler.New(orchestratorSvc, settlementSvc, settlementRepo, riskSvc, riskCfg.HighFrequencyWindow, liquiditySvc, redisCache, reportingSvc, paymentRepo, nil, settlementCfg.IntradayLookback)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	return &testStack{db: db, mux: mux, orch: orchestratorSvc, settle: settlementSvc}
}

func initiatePayload(amount, currency, debtor, creditor string) []byte {
	body, _ := json.Marshal(map[string]string{
		"amount":            amount,
		"currency":          currency,
		"debtor_account":    debtor,
		"creditor_account":  creditor,
		"purpose":           "TRADE",
		"settlement_method": "PVP",
	})
	return body
}

// TestIntegration_DuplicateInitiateIsIdempotent covers P1: two concurrent
// POST /payments/initiate calls with the same body and Idempotency-Key
// leave exactly one payments row behind. The idempotency middleware isn't
// mounted here (the bare service is exercised through the handler mux
// directly), so this proves the Orchestrator/Postgres half of P1 — the
// unique index on idempotency_key plus the duplicate-insert fallback path.
func TestIntegration_DuplicateInitiateIsIdempotent(t *testing.T) {
	stack := setupStack(t)
	idemKey := uuid.New().String()
	body := initiatePayload("100.00", "USD", "A", "B")

	run := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/payments/initiate", bytes.NewReader(body))
		r.Header.Set("Idempotency-Key", idemKey)
		stack.mux.ServeHTTP(w, r)
		return w
	}

	var wg sync.WaitGroup
	results := make([]*httptest.ResponseRecorder, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = run()
		}(i)
	}
	wg.Wait()

	for _, w := range results {
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	var count int
	err := stack.db.Pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM payments WHERE idempotency_key = $1", idemKey).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

// TestIntegration_CancelAfterSettleConflicts covers scenario 6: once a
// payment has been swept into a closed batch, cancelling it returns 409.
func TestIntegration_CancelAfterSettleConflicts(t *testing.T) {
	stack := setupStack(t)
	ctx := context.Background()

	amount, err := domain.ParseMoney("250.00")
	require.NoError(t, err)

	resp, err := stack.orch.Initiate(ctx, service.InitiateRequest{
		Amount:           amount,
		Currency:         "USD",
		DebtorAccount:    "A",
		CreditorAccount:  "B",
		Purpose:          domain.PaymentPurpose("TRADE"),
		SettlementMethod: domain.SettlementMethod("PVP"),
	}, uuid.New())
	require.NoError(t, err)

	_, err = stack.db.Pool.Exec(ctx, "UPDATE payments SET status = 'APPROVED' WHERE transaction_id = $1", resp.TransactionID)
	require.NoError(t, err)

	summary, err := stack.settle.CloseBatch(ctx, service.WindowEOD)
	require.NoError(t, err)
	require.NotEmpty(t, summary.BatchID)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/payments/"+resp.TransactionID.String()+"/cancel", nil)
	r.SetPathValue("id", resp.TransactionID.String())
	stack.mux.ServeHTTP(w, r)

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

// TestIntegration_RiskModeTransitionIsSingleActiveRow covers scenario 5:
// setting a new risk mode always leaves exactly one active risk_config row.
func TestIntegration_RiskModeTransitionIsSingleActiveRow(t *testing.T) {
	stack := setupStack(t)
	ctx := context.Background()

	_, err := stack.db.Pool.Exec(ctx, `INSERT INTO risk_config (mode, is_active, updated_at) VALUES ('MEDIUM', true, now())`)
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"mode": "HIGH"})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/risk/mode", bytes.NewReader(body))
	stack.mux.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int
	err = stack.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM risk_config WHERE is_active").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	var mode string
	err = stack.db.Pool.QueryRow(ctx, "SELECT mode FROM risk_config WHERE is_active").Scan(&mode)
	require.NoError(t, err)
	require.Equal(t, "HIGH", mode)
}
