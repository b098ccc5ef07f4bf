package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
)

const quoteResponseCacheTTL = 30 * time.Second

// LiquidityConfig carries the Liquidity Coordinator's tunables in from
// config.LiquidityConfig without this package depending on the config
// package.
type LiquidityConfig struct {
	// DispatchBudget is the wall-clock deadline for a single GetQuotes
	// fan-out round (§4.5).
	DispatchBudget time.Duration
	// MaxSources caps how many supporting providers are dispatched when the
	// caller doesn't request a smaller number.
	MaxSources int
	// QuoteCacheTTL is how long an issued quote stays executable in cache.
	QuoteCacheTTL time.Duration
}

// QuoteResponse is the result of a GetQuotes dispatch round.
type QuoteResponse struct {
	Quotes      []*domain.Quote
	Best        *domain.Quote
	RequestID   string
	GeneratedAt time.Time
	SLAMillis   int64
}

// LiquidityService implements the Liquidity Coordinator (§4.5): parallel
// provider fan-out bounded by a wall-clock deadline, utility-based
// selection, and single-use quote execution.
type LiquidityService struct {
	providers []ports.QuoteProvider
	cache     ports.Cache
	bus       ports.EventBus
	cfg       LiquidityConfig
	logger    *slog.Logger
}

func NewLiquidityService(providers []ports.QuoteProvider, cache ports.Cache, bus ports.EventBus, cfg LiquidityConfig, logger *slog.Logger) *LiquidityService {
	return &LiquidityService{providers: providers, cache: cache, bus: bus, cfg: cfg, logger: logger}
}

func quoteKey(id string) string { return "quote:" + id }

func liquidityCacheKey(from, to string, amount domain.Money, method string) string {
	return fmt.Sprintf("liquidity:%s:%s:%s:%s", from, to, amount.String(), method)
}

// GetQuotes dispatches up to maxSources providers in parallel, bounded by
// the configured DispatchBudget; stubs that miss the deadline are abandoned
// rather than awaited.
func (s *LiquidityService) GetQuotes(ctx context.Context, from, to string, amount domain.Money, method string, maxSources int) (*QuoteResponse, error) {
	if from == to {
		return nil, domain.NewValidationError("to_currency", "must differ from from_currency")
	}
	if maxSources <= 0 || maxSources > s.cfg.MaxSources {
		maxSources = s.cfg.MaxSources
	}

	start := time.Now()
	requestID := domain.NewReference().String()

	cacheKey := liquidityCacheKey(from, to, amount, method)
	if raw, err := s.cache.Get(ctx, cacheKey); err == nil && raw != nil {
		var cached QuoteResponse
		if err := json.Unmarshal(raw, &cached); err == nil {
			cached.RequestID = requestID
			return &cached, nil
		}
	}

	var supporting []ports.QuoteProvider
	for _, p := range s.providers {
		if p.Supports(from, to) {
			supporting = append(supporting, p)
		}
	}
	if len(supporting) == 0 {
		return nil, domain.NewError(domain.ErrCodeLiquidityUnavailable, "no provider supports "+from+"/"+to)
	}

	providers := supporting
	if len(providers) > maxSources {
		providers = providers[:maxSources]
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, s.cfg.DispatchBudget)
	defer cancel()

	results := make(chan *domain.Quote, len(providers))
	var wg sync.WaitGroup
	for _, p := range providers {
		wg.Add(1)
		go func(p ports.QuoteProvider) {
			defer wg.Done()
			q, err := p.Quote(dispatchCtx, from, to, amount)
			if err != nil {
				s.logger.Debug("provider quote failed", "provider", p.Name(), "error", err)
				return
			}
			select {
			case results <- q:
			case <-dispatchCtx.Done():
			}
		}(p)
	}

	// Closer goroutine lets the select below observe either a completed
	// fan-out or the dispatch deadline without blocking on stragglers.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var quotes []*domain.Quote
collect:
	for {
		select {
		case q := <-results:
			quotes = append(quotes, q)
		case <-done:
			// Drain anything buffered between the done signal and here.
			for {
				select {
				case q := <-results:
					quotes = append(quotes, q)
				default:
					break collect
				}
			}
		case <-dispatchCtx.Done():
			break collect
		}
	}

	if len(quotes) == 0 {
		return nil, domain.NewError(domain.ErrCodeExternalService, "no liquidity providers returned a quote")
	}

	for _, q := range quotes {
		s.cacheQuote(ctx, q)
	}

	best := domain.BestQuote(quotes)
	response := &QuoteResponse{
		Quotes:      quotes,
		Best:        best,
		RequestID:   requestID,
		GeneratedAt: time.Now().UTC(),
		SLAMillis:   time.Since(start).Milliseconds(),
	}

	if raw, err := json.Marshal(response); err == nil {
		if err := s.cache.Set(ctx, cacheKey, raw, quoteResponseCacheTTL); err != nil {
			s.logger.Warn("failed to cache liquidity quote response", "error", err)
		}
	}

	if s.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"message_id":  domain.NewReference(),
			"request_id":  requestID,
			"from":        from,
			"to":          to,
			"quote_count": len(quotes),
			"sla_ms":      response.SLAMillis,
		})
		if err := s.bus.Publish(ctx, "liquidity.quote_generated", payload); err != nil {
			s.logger.Warn("failed to publish liquidity.quote_generated", "error", err)
		}
	}

	return response, nil
}

func (s *LiquidityService) cacheQuote(ctx context.Context, q *domain.Quote) {
	raw, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, quoteKey(q.QuoteID.String()), raw, s.cfg.QuoteCacheTTL); err != nil {
		s.logger.Warn("failed to cache quote", "quote_id", q.QuoteID, "error", err)
	}
}

// Execute atomically reads and removes the quote by id (single-use
// semantics: GetDel ensures at most one concurrent caller ever observes the
// value) and, if it hadn't already expired, publishes liquidity.quote_executed.
func (s *LiquidityService) Execute(ctx context.Context, quoteID string) (*domain.Quote, error) {
	raw, err := s.cache.GetDel(ctx, quoteKey(quoteID))
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeExternalService, "failed to load quote", err)
	}
	if raw == nil {
		return nil, domain.NewNotFoundError("quote", quoteID)
	}

	var quote domain.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "corrupt quote record", err)
	}

	if quote.Expired(time.Now().UTC()) {
		return nil, domain.NewError(domain.ErrCodePaymentExpired, "quote has expired")
	}

	if s.bus != nil {
		payload, _ := json.Marshal(map[string]any{
			"message_id":    domain.NewReference(),
			"execution_id":  domain.NewReference(),
			"quote_id":      quoteID,
			"executed_rate": quote.AppliedRate,
			"executed_at":   time.Now().UTC(),
		})
		if err := s.bus.Publish(ctx, "liquidity.quote_executed", payload); err != nil {
			s.logger.Warn("failed to publish liquidity.quote_executed", "error", err)
		}
	}

	return &quote, nil
}
