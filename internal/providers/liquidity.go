// Package providers implements the deterministic, no-external-I/O
// liquidity provider stubs dispatched by the Liquidity Coordinator (§4.5).
package providers

import (
	"context"
	"math/rand"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
)

var _ ports.QuoteProvider = (*stub)(nil)

// stub is a simulated liquidity source: a supported-currency set, a base
// spread, a simulated latency, and a nominal utility score, mirroring
// original_source's LIQUIDITY_PROVIDERS table.
type stub struct {
	name       string
	currencies map[string]bool
	baseSpread float64
	latency    time.Duration
	utility    float64
}

func newStub(name string, currencies []string, baseSpread float64, latencyMs int, utility float64) *stub {
	set := make(map[string]bool, len(currencies))
	for _, c := range currencies {
		set[c] = true
	}
	return &stub{name: name, currencies: set, baseSpread: baseSpread, latency: time.Duration(latencyMs) * time.Millisecond, utility: utility}
}

// Treasury, Fund, P2P and MarketMaker are the four provider stubs named in
// §4.5, each advertising a distinct currency set and risk/speed tradeoff.
func Treasury() *stub {
	return newStub("Treasury Desk", []string{"USD", "EUR", "GBP", "JPY", "CHF"}, 0.002, 50, 0.9)
}

func Fund() *stub {
	return newStub("Investment Fund", []string{"USD", "AED", "INR", "SGD", "HKD"}, 0.003, 80, 0.8)
}

func P2P() *stub {
	return newStub("P2P Network", []string{"USD", "EUR", "AED", "INR"}, 0.001, 120, 0.7)
}

func MarketMaker() *stub {
	return newStub("Market Maker", []string{"USD", "EUR", "GBP", "JPY", "AED", "INR"}, 0.0015, 30, 0.95)
}

// All returns the default provider set, in the order the coordinator
// dispatches them.
func All() []*stub {
	return []*stub{Treasury(), Fund(), P2P(), MarketMaker()}
}

// mockRates is the static mid-rate table backing quote synthesis; pairs not
// present here (nor by inverse) get a synthetic rate in [0.5, 2.0].
var mockRates = map[[2]string]float64{
	{"USD", "EUR"}: 0.85,
	{"USD", "GBP"}: 0.75,
	{"USD", "JPY"}: 110.0,
	{"USD", "AED"}: 3.67,
	{"USD", "INR"}: 83.0,
	{"AED", "INR"}: 22.6,
	{"EUR", "GBP"}: 0.88,
	{"EUR", "USD"}: 1.18,
	{"GBP", "USD"}: 1.33,
	{"JPY", "USD"}: 0.009,
	{"AED", "USD"}: 0.27,
	{"INR", "USD"}: 0.012,
	{"INR", "AED"}: 0.044,
}

func midRate(from, to string) float64 {
	if r, ok := mockRates[[2]string{from, to}]; ok {
		return r
	}
	if r, ok := mockRates[[2]string{to, from}]; ok {
		return 1.0 / r
	}
	return 0.5 + rand.Float64()*1.5
}

func (s *stub) Name() string { return s.name }

func (s *stub) Supports(from, to string) bool {
	return s.currencies[from] && s.currencies[to]
}

// Quote simulates the provider's latency with a context-aware sleep and
// synthesizes a rate/spread/utility per §4.5's formula. It never performs
// real I/O; the "stub" is the entire point.
func (s *stub) Quote(ctx context.Context, from, to string, amount domain.Money) (*domain.Quote, error) {
	if !s.currencies[from] || !s.currencies[to] {
		return nil, domain.NewError(domain.ErrCodeExternalService, s.name+" does not support "+from+"/"+to)
	}

	select {
	case <-time.After(s.latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	mid := midRate(from, to)
	spread := s.baseSpread * (1 + (rand.Float64()*0.4 - 0.2)) // ±20%
	applied := mid * (1 - spread)
	utility := s.utility * (0.9 + rand.Float64()*0.2) // U(0.9, 1.1)

	now := time.Now().UTC()
	return &domain.Quote{
		QuoteID:      domain.NewTransactionID(),
		FromCurrency: from,
		ToCurrency:   to,
		Amount:       amount,
		MidRate:      mid,
		AppliedRate:  applied,
		Spread:       spread,
		Source:       s.name,
		TTLSeconds:   int(domain.QuoteTTL.Seconds()),
		ExpiresAt:    now.Add(domain.QuoteTTL),
		UtilityScore: utility,
	}, nil
}
