package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deltran/settlement-gateway/internal/adapters/bus"
	"github.com/deltran/settlement-gateway/internal/adapters/cache"
	"github.com/deltran/settlement-gateway/internal/adapters/handler"
	"github.com/deltran/settlement-gateway/internal/adapters/postgres"
	"github.com/deltran/settlement-gateway/internal/config"
	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/deltran/settlement-gateway/internal/core/service"
	"github.com/deltran/settlement-gateway/internal/idempotency"
	"github.com/deltran/settlement-gateway/internal/middleware"
	"github.com/deltran/settlement-gateway/internal/providers"
	"github.com/deltran/settlement-gateway/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisCache, err := cache.Connect(ctx, cfg.Redis.Options(), logger)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	eventBus, err := bus.Connect(ctx, cfg.NATS, logger)
	if err != nil {
		logger.Error("failed to connect to nats", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	paymentRepo := postgres.NewPaymentRepository(db)
	settlementRepo := postgres.NewSettlementRepository(db)
	riskRepo := postgres.NewRiskRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	txRunner := postgres.NewTxRunner(db)

	retryCfg := providers.RetryConfig{
		BaseDelay:  time.Duration(cfg.Retry.BaseDelay) * time.Millisecond,
		MaxRetries: int(cfg.Retry.MaxRetries),
	}
	quoteProviders := make([]ports.QuoteProvider, 0)
	for _, p := range providers.All() {
		quoteProviders = append(quoteProviders, providers.WrapRetry(p, retryCfg))
	}

	riskCfg := service.RiskConfig{
		DefaultMode:         domain.RiskMode(cfg.Risk.DefaultMode),
		HighValueThreshold:  cfg.Risk.HighValueThresholdUSD,
		HighFrequencyCount:  cfg.Risk.HighFrequencyCount,
		HighFrequencyWindow: cfg.Risk.HighFrequencyWindow,
		ModeCacheTTL:        cfg.Risk.ModeCacheTTL,
		MetricsCacheTTL:     cfg.Risk.MetricsCacheTTL,
	}
	liquidityCfg := service.LiquidityConfig{
		DispatchBudget: cfg.Liquidity.DispatchBudget,
		MaxSources:     cfg.Liquidity.MaxSources,
		QuoteCacheTTL:  cfg.Liquidity.QuoteCacheTTL,
	}
	settlementCfg := service.SettlementConfig{
		IntradayLookback: cfg.Settlement.IntradayLookback,
		AmountTolerance:  cfg.Settlement.AmountTolerance,
	}

	orchestratorSvc := service.NewOrchestratorService(paymentRepo, eventBus, logger)
	settlementSvc := service.NewSettlementService(paymentRepo, settlementRepo, eventBus, service.TxRunner(txRunner), settlementCfg, logger)
	riskSvc := service.NewRiskService(riskRepo, redisCache, eventBus, riskCfg, logger)
	liquiditySvc := service.NewLiquidityService(quoteProviders, redisCache, eventBus, liquidityCfg, logger)
	reportingSvc := service.NewReportingService(paymentRepo, settlementRepo, reportRepo, eventBus, logger)

	settlementTicker := worker.NewSettlementTicker(settlementSvc, cfg.Settlement.TickInterval, logger)
	go settlementTicker.Start(ctx)

	h := handler.New(
		orchestratorSvc,
		settlementSvc,
		settlementRepo,
		riskSvc,
		cfg.Risk.HighFrequencyWindow,
		liquiditySvc,
		redisCache,
		reportingSvc,
		paymentRepo,
		[]handler.HealthChecker{db, redisCache, eventBus},
		cfg.Settlement.IntradayLookback,
	)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	idemCore := idempotency.NewCore(redisCache, logger)
	idemMux := http.NewServeMux()
	idemMux.Handle("POST /payments/initiate", middleware.Idempotency(idemCore)(mux))
	idemMux.Handle("/", mux)

	chain := middleware.Recovery(logger)(middleware.Timeout(cfg.Server.ReadTimeout, logger)(idemMux))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", "error", err)
	}

	logger.Info("exit")
}
