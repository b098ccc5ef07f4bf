package domain

import "github.com/google/uuid"

// RiskMode is the liquidity-engine's current operating posture, set by the
// Risk Controller; its thresholds score the risk metrics. The Liquidity
// Coordinator does not read it.
type RiskMode string

const (
	RiskModeLow    RiskMode = "LOW"
	RiskModeMedium RiskMode = "MEDIUM"
	RiskModeHigh   RiskMode = "HIGH"
)

// RiskThresholds bound the quote spread, depth, deviation, latency, and
// rolling volume tolerated before a mode-breach point is scored
// (original_source/gateway/api/risk.py's RISK_THRESHOLDS table).
type RiskThresholds struct {
	SpreadThreshold    float64
	DepthThreshold     float64
	DeviationThreshold float64
	LatencyThresholdMs int
	VolumeThresholdUSD float64
}

// DefaultThresholdsByMode is the per-mode threshold table. Tighter modes
// (HIGH) tolerate more spread/deviation/latency since they represent a
// reduced-liquidity regime where breaches are expected, not anomalous.
var DefaultThresholdsByMode = map[RiskMode]RiskThresholds{
	RiskModeLow:    {SpreadThreshold: 0.001, DepthThreshold: 1_000_000, DeviationThreshold: 0.05, LatencyThresholdMs: 100, VolumeThresholdUSD: 10_000_000},
	RiskModeMedium: {SpreadThreshold: 0.005, DepthThreshold: 500_000, DeviationThreshold: 0.10, LatencyThresholdMs: 200, VolumeThresholdUSD: 5_000_000},
	RiskModeHigh:   {SpreadThreshold: 0.01, DepthThreshold: 100_000, DeviationThreshold: 0.20, LatencyThresholdMs: 500, VolumeThresholdUSD: 1_000_000},
}

// RiskConfig is the single active row enforced by a partial unique index
// (risk_config.is_active) — only one configuration may be active at a time.
// ID is a BIGSERIAL assigned by the database on insert; a config not yet
// persisted carries the zero value.
type RiskConfig struct {
	ID         int64
	Mode       RiskMode
	Thresholds RiskThresholds
	IsActive   bool
}

// RiskFactor is one additive contributor to a payment's risk score.
type RiskFactor string

const (
	FactorHighValue          RiskFactor = "HIGH_VALUE"
	FactorHighRiskCurrency   RiskFactor = "HIGH_RISK_CURRENCY"
	FactorHighFrequency      RiskFactor = "HIGH_FREQUENCY"
	FactorWeekendTransaction RiskFactor = "WEEKEND_TRANSACTION"
)

// riskFactorPoints is the additive scoring table for payment screening.
var riskFactorPoints = map[RiskFactor]int{
	FactorHighValue:          20,
	FactorHighRiskCurrency:   15,
	FactorHighFrequency:      10,
	FactorWeekendTransaction: 5,
}

// PointsFor returns the score contribution of a risk factor.
func PointsFor(factor RiskFactor) int {
	return riskFactorPoints[factor]
}

// RecommendedAction is the screening outcome derived from a risk score.
type RecommendedAction string

const (
	ActionApprove            RecommendedAction = "APPROVE"
	ActionEnhancedMonitoring RecommendedAction = "ENHANCED_MONITORING"
	ActionManualReview       RecommendedAction = "MANUAL_REVIEW"
)

// RiskAssessment is the result of screening a single payment.
type RiskAssessment struct {
	TransactionID     uuid.UUID
	RiskScore         int
	RiskFactors       []RiskFactor
	RecommendedAction RecommendedAction
}

// Recommend maps a cumulative risk score to an action: below 20 approves
// outright, 20-39 gets enhanced monitoring, 40 and above goes to manual
// review.
func Recommend(score int) RecommendedAction {
	switch {
	case score >= 40:
		return ActionManualReview
	case score >= 20:
		return ActionEnhancedMonitoring
	default:
		return ActionApprove
	}
}

// RiskMetrics is the aggregate RiskService.Metrics computes over the quote
// samples it is given (§4.3 Metrics()).
type RiskMetrics struct {
	AvgSpread    float64
	AvgLatencyMs float64
	TotalVolume  float64
	Deviation    float64
	RiskScore    int
}

// defaultDeviation is used when fewer than two quote samples exist in the
// window — not enough points to compute a meaningful stddev/mean ratio.
const defaultDeviation = 0.05

// breachScore is awarded once per breached threshold (spread, deviation,
// latency, volume), giving a {0,25,50,75,100} range.
const breachScore = 25

// ScoreMetrics breach-scores a computed RiskMetrics against the active
// mode's thresholds.
func ScoreMetrics(m RiskMetrics, t RiskThresholds) int {
	score := 0
	if m.AvgSpread > t.SpreadThreshold {
		score += breachScore
	}
	if m.Deviation > t.DeviationThreshold {
		score += breachScore
	}
	if m.AvgLatencyMs > float64(t.LatencyThresholdMs) {
		score += breachScore
	}
	if m.TotalVolume > t.VolumeThresholdUSD {
		score += breachScore
	}
	return score
}
