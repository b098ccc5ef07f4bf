package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
)

// riskModeCacheKey mirrors a single KV record holding the currently active
// mode so readers avoid a DB round trip on the hot path (§4.3).
const riskModeCacheKey = "risk:current_mode"

const riskMetricsCacheKey = "risk:metrics"

// highRiskCurrencies are the currencies scored under FactorHighRiskCurrency.
var highRiskCurrencies = map[string]bool{"AED": true, "INR": true, "CNY": true}

// RiskConfig carries the Risk Controller's tunables in from config.RiskConfig
// without this package depending on the config package.
type RiskConfig struct {
	DefaultMode         domain.RiskMode
	HighValueThreshold  float64
	HighFrequencyCount  int
	HighFrequencyWindow time.Duration
	ModeCacheTTL        time.Duration
	MetricsCacheTTL     time.Duration
}

// RiskService implements the Risk Controller (§4.3): it owns the single
// active risk mode and per-transaction screening.
type RiskService struct {
	repo   ports.RiskRepository
	cache  ports.Cache
	bus    ports.EventBus
	cfg    RiskConfig
	logger *slog.Logger
}

func NewRiskService(repo ports.RiskRepository, cache ports.Cache, bus ports.EventBus, cfg RiskConfig, logger *slog.Logger) *RiskService {
	return &RiskService{repo: repo, cache: cache, bus: bus, cfg: cfg, logger: logger}
}

type riskModeDoc struct {
	Mode       domain.RiskMode       `json:"mode"`
	Thresholds domain.RiskThresholds `json:"thresholds"`
}

// GetMode serves from KV on hit; on miss it falls back to the newest active
// DB row, defaulting to Medium if none exists, and repopulates the cache.
func (s *RiskService) GetMode(ctx context.Context) (*domain.RiskConfig, error) {
	if raw, err := s.cache.Get(ctx, riskModeCacheKey); err == nil && raw != nil {
		var doc riskModeDoc
		if err := json.Unmarshal(raw, &doc); err == nil {
			return &domain.RiskConfig{Mode: doc.Mode, Thresholds: doc.Thresholds, IsActive: true}, nil
		}
	}

	cfg, err := s.repo.ActiveConfig(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeRiskAssessmentFailed, "failed to get risk mode", err)
	}
	if cfg == nil {
		mode := s.cfg.DefaultMode
		if mode == "" {
			mode = domain.RiskModeMedium
		}
		cfg = &domain.RiskConfig{
			Mode:       mode,
			Thresholds: domain.DefaultThresholdsByMode[mode],
			IsActive:   true,
		}
	}
	s.mirrorMode(ctx, cfg)
	return cfg, nil
}

// SetMode deactivates the current active row and installs a new one in a
// single transaction so readers never observe zero or two active rows
// (I4), then mirrors KV and publishes risk.mode_changed.
func (s *RiskService) SetMode(ctx context.Context, mode domain.RiskMode) (*domain.RiskConfig, error) {
	cfg := &domain.RiskConfig{
		Mode:       mode,
		Thresholds: domain.DefaultThresholdsByMode[mode],
		IsActive:   true,
	}
	if err := s.repo.ActivateConfig(ctx, cfg); err != nil {
		return nil, domain.WrapError(domain.ErrCodeRiskAssessmentFailed, "failed to set risk mode", err)
	}
	s.mirrorMode(ctx, cfg)

	if s.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"message_id": domain.NewReference(),
			"new_mode":   mode,
			"timestamp":  time.Now().UTC(),
		})
		if err := s.bus.Publish(ctx, "risk.mode_changed", payload); err != nil {
			s.logger.Warn("failed to publish risk.mode_changed", "error", err)
		}
	}
	return cfg, nil
}

func (s *RiskService) mirrorMode(ctx context.Context, cfg *domain.RiskConfig) {
	raw, err := json.Marshal(riskModeDoc{Mode: cfg.Mode, Thresholds: cfg.Thresholds})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, riskModeCacheKey, raw, s.cfg.ModeCacheTTL); err != nil {
		s.logger.Warn("failed to mirror risk mode to cache", "error", err)
	}
}

// Metrics aggregates the quote samples passed in and scores them against
// the currently active thresholds. It does not load or filter samples
// itself; with no samples it returns a fixed baseline (deviation 0.05).
func (s *RiskService) Metrics(ctx context.Context, samples []QuoteSample) (domain.RiskMetrics, error) {
	if raw, err := s.cache.Get(ctx, riskMetricsCacheKey); err == nil && raw != nil {
		var cached domain.RiskMetrics
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	metrics := computeRiskMetrics(samples)

	cfg, err := s.GetMode(ctx)
	if err != nil {
		return metrics, err
	}
	metrics.RiskScore = domain.ScoreMetrics(metrics, cfg.Thresholds)

	if raw, err := json.Marshal(metrics); err == nil {
		if err := s.cache.Set(ctx, riskMetricsCacheKey, raw, s.cfg.MetricsCacheTTL); err != nil {
			s.logger.Warn("failed to cache risk metrics", "error", err)
		}
	}
	return metrics, nil
}

// QuoteSample is the minimal projection of a recorded liquidity quote the
// metrics aggregation needs.
type QuoteSample struct {
	Spread        float64
	Amount        float64
	LatencyMillis int
}

func computeRiskMetrics(samples []QuoteSample) domain.RiskMetrics {
	if len(samples) == 0 {
		return domain.RiskMetrics{AvgSpread: 0.002, AvgLatencyMs: 80, TotalVolume: 5_000_000, Deviation: 0.05}
	}

	var sumSpread, sumLatency, sumVolume float64
	for _, q := range samples {
		sumSpread += q.Spread
		sumLatency += float64(q.LatencyMillis)
		sumVolume += q.Amount
	}
	n := float64(len(samples))
	avgSpread := sumSpread / n
	avgLatency := sumLatency / n

	dev := 0.05
	if len(samples) > 1 && avgSpread > 0 {
		var variance float64
		for _, q := range samples {
			d := q.Spread - avgSpread
			variance += d * d
		}
		variance /= n
		dev = math.Sqrt(variance) / avgSpread
	}

	return domain.RiskMetrics{
		AvgSpread:    avgSpread,
		AvgLatencyMs: avgLatency,
		TotalVolume:  sumVolume,
		Deviation:    dev,
	}
}

// Assess screens a single payment per §4.3, scoring each factor additively,
// persisting the result, and publishing risk.assessment_completed.
func (s *RiskService) Assess(ctx context.Context, p *domain.Payment, debtorRecentCount int) (*domain.RiskAssessment, error) {
	var factors []domain.RiskFactor
	score := 0

	if p.Amount.Float64() > s.cfg.HighValueThreshold {
		factors = append(factors, domain.FactorHighValue)
		score += domain.PointsFor(domain.FactorHighValue)
	}
	if highRiskCurrencies[p.Currency] {
		factors = append(factors, domain.FactorHighRiskCurrency)
		score += domain.PointsFor(domain.FactorHighRiskCurrency)
	}
	if debtorRecentCount > s.cfg.HighFrequencyCount {
		factors = append(factors, domain.FactorHighFrequency)
		score += domain.PointsFor(domain.FactorHighFrequency)
	}
	weekday := time.Now().UTC().Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		factors = append(factors, domain.FactorWeekendTransaction)
		score += domain.PointsFor(domain.FactorWeekendTransaction)
	}

	assessment := &domain.RiskAssessment{
		TransactionID:     p.TransactionID,
		RiskScore:         score,
		RiskFactors:       factors,
		RecommendedAction: domain.Recommend(score),
	}

	if err := s.repo.SaveAssessment(ctx, assessment); err != nil {
		return nil, domain.WrapError(domain.ErrCodeRiskAssessmentFailed, "failed to persist risk assessment", err)
	}

	if s.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"message_id":         domain.NewReference(),
			"transaction_id":     p.TransactionID,
			"risk_score":         score,
			"risk_factors":       factors,
			"recommended_action": assessment.RecommendedAction,
		})
		if err := s.bus.Publish(ctx, "risk.assessment_completed", payload); err != nil {
			s.logger.Warn("failed to publish risk.assessment_completed", "error", err)
		}
	}

	return assessment, nil
}
