package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/deltran/settlement-gateway/internal/core/service"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
)

// OrchestratorService is the Payment Orchestrator surface the handler
// depends on.
type OrchestratorService interface {
	Initiate(ctx context.Context, req service.InitiateRequest, idemKey uuid.UUID) (*service.PaymentResponse, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
}

// SettlementService is the Settlement Engine surface the handler depends
// on; batch reads go straight to the repository, mirroring the teacher's
// query.go talking to a read-only collaborator.
type SettlementService interface {
	CloseBatch(ctx context.Context, window service.SettlementWindow) (*service.BatchClosedSummary, error)
}

// RiskService is the Risk Controller surface the handler depends on.
type RiskService interface {
	GetMode(ctx context.Context) (*domain.RiskConfig, error)
	SetMode(ctx context.Context, mode domain.RiskMode) (*domain.RiskConfig, error)
	Metrics(ctx context.Context, samples []service.QuoteSample) (domain.RiskMetrics, error)
	Assess(ctx context.Context, p *domain.Payment, debtorRecentCount int) (*domain.RiskAssessment, error)
}

// LiquidityService is the Liquidity Coordinator surface the handler
// depends on.
type LiquidityService interface {
	GetQuotes(ctx context.Context, from, to string, amount domain.Money, method string, maxSources int) (*service.QuoteResponse, error)
	Execute(ctx context.Context, quoteID string) (*domain.Quote, error)
}

// ReportingService is the Reporting surface the handler depends on.
type ReportingService interface {
	ProofOfReserves(ctx context.Context) (*domain.ProofOfReserves, error)
	ProofOfSettlement(ctx context.Context, date time.Time) (*domain.ProofOfSettlement, error)
	TransactionReport(ctx context.Context, filter domain.TransactionReportFilter) ([]*domain.Payment, error)
}

// HealthChecker probes one collaborator for the /health aggregate (§6.1).
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler wires every component's HTTP surface behind a single
// *http.ServeMux, in the same "one struct, one RegisterRoutes" shape as
// the teacher's PaymentHandler.
type Handler struct {
	orchestrator   OrchestratorService
	settlement     SettlementService
	batches        ports.SettlementRepository
	risk           RiskService
	riskFreqWindow time.Duration
	liquidity      LiquidityService
	quoteCache     ports.Cache
	reporting      ReportingService
	payments       ports.PaymentRepository
	healthChecks   []HealthChecker
	validate       *validator.Validate
	settleLookback time.Duration
}

func New(
	orchestrator OrchestratorService,
	settlement SettlementService,
	batches ports.SettlementRepository,
	risk RiskService,
	riskFreqWindow time.Duration,
	liquidity LiquidityService,
	quoteCache ports.Cache,
	reporting ReportingService,
	payments ports.PaymentRepository,
	healthChecks []HealthChecker,
	settleLookback time.Duration,
) *Handler {
	return &Handler{
		orchestrator:   orchestrator,
		settlement:     settlement,
		batches:        batches,
		risk:           risk,
		riskFreqWindow: riskFreqWindow,
		liquidity:      liquidity,
		quoteCache:     quoteCache,
		reporting:      reporting,
		payments:       payments,
		healthChecks:   healthChecks,
		validate:       validator.New(),
		settleLookback: settleLookback,
	}
}

// RegisterRoutes mounts the gateway's routes on mux using Go 1.22's
// method-prefixed ServeMux patterns. GET /reports/compliance is not
// registered.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /payments/initiate", h.handleInitiate)
	mux.HandleFunc("GET /payments/{id}/status", h.handleGetStatus)
	mux.HandleFunc("POST /payments/{id}/cancel", h.handleCancel)

	mux.HandleFunc("POST /settlement/close-batch", h.handleCloseBatch)
	mux.HandleFunc("GET /settlement/status", h.handleSettlementStatus)
	mux.HandleFunc("GET /settlement/batches/{id}", h.handleGetBatch)

	mux.HandleFunc("GET /risk/mode", h.handleGetRiskMode)
	mux.HandleFunc("POST /risk/mode", h.handleSetRiskMode)
	mux.HandleFunc("GET /risk/metrics", h.handleRiskMetrics)
	mux.HandleFunc("GET /risk/thresholds", h.handleRiskThresholds)
	mux.HandleFunc("POST /risk/assess/{txn}", h.handleAssess)

	mux.HandleFunc("GET /liquidity/quotes", h.handleGetQuotes)
	mux.HandleFunc("GET /liquidity/quotes/{id}", h.handleGetQuote)
	mux.HandleFunc("POST /liquidity/quotes/{id}/execute", h.handleExecuteQuote)

	mux.HandleFunc("GET /reports/proof-of-reserves", h.handleProofOfReserves)
	mux.HandleFunc("GET /reports/proof-of-settlement", h.handleProofOfSettlement)
	mux.HandleFunc("GET /reports/transactions", h.handleTransactionReport)

	mux.HandleFunc("GET /health", h.handleHealth)
}
