package service

import (
	"context"
	"testing"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/shopspring/decimal"
)

func TestLiquidityService_GetQuotes_RejectsSameCurrency(t *testing.T) {
	svc := NewLiquidityService(nil, newMockCache(), newMockBus(), testLiquidityConfig(), discardLogger())
	_, err := svc.GetQuotes(context.Background(), "USD", "USD", domain.ZeroMoney(), "PVP", 3)
	if domain.CodeOf(err) != domain.ErrCodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestLiquidityService_GetQuotes_NoSupportingProvider(t *testing.T) {
	providers := []ports.QuoteProvider{newMockQuoteProvider("p1", [2]string{"USD", "EUR"}, 0.9, time.Millisecond)}
	svc := NewLiquidityService(providers, newMockCache(), newMockBus(), testLiquidityConfig(), discardLogger())

	_, err := svc.GetQuotes(context.Background(), "JPY", "CHF", domain.ZeroMoney(), "PVP", 3)
	if domain.CodeOf(err) != domain.ErrCodeLiquidityUnavailable {
		t.Fatalf("expected LIQUIDITY_UNAVAILABLE, got %v", err)
	}
}

func TestLiquidityService_GetQuotes_PicksBestUtility(t *testing.T) {
	pair := [2]string{"USD", "EUR"}
	providers := []ports.QuoteProvider{
		newMockQuoteProvider("low", pair, 0.5, time.Millisecond),
		newMockQuoteProvider("high", pair, 0.95, time.Millisecond),
		newMockQuoteProvider("mid", pair, 0.7, time.Millisecond),
	}
	svc := NewLiquidityService(providers, newMockCache(), newMockBus(), testLiquidityConfig(), discardLogger())

	amount := domain.NewMoney(decimal.NewFromInt(1000))
	resp, err := svc.GetQuotes(context.Background(), "USD", "EUR", amount, "PVP", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Quotes) != 3 {
		t.Fatalf("quote count = %d, want 3", len(resp.Quotes))
	}
	if resp.Best.Source != "high" {
		t.Fatalf("best quote source = %q, want %q", resp.Best.Source, "high")
	}
}

func TestLiquidityService_GetQuotes_AbandonsSlowProvider(t *testing.T) {
	pair := [2]string{"USD", "EUR"}
	providers := []ports.QuoteProvider{
		newMockQuoteProvider("fast", pair, 0.8, 5*time.Millisecond),
		newMockQuoteProvider("slow", pair, 0.99, 500*time.Millisecond),
	}
	svc := NewLiquidityService(providers, newMockCache(), newMockBus(), testLiquidityConfig(), discardLogger())

	resp, err := svc.GetQuotes(context.Background(), "USD", "EUR", domain.ZeroMoney(), "PVP", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Quotes) != 1 || resp.Quotes[0].Source != "fast" {
		t.Fatalf("expected only the fast provider's quote within the dispatch budget, got %+v", resp.Quotes)
	}
}

func TestLiquidityService_Execute_SingleUse(t *testing.T) {
	cache := newMockCache()
	svc := NewLiquidityService(nil, cache, newMockBus(), testLiquidityConfig(), discardLogger())
	ctx := context.Background()

	quote := &domain.Quote{
		QuoteID:     domain.NewTransactionID(),
		AppliedRate: 0.85,
		ExpiresAt:   time.Now().UTC().Add(domain.QuoteTTL),
	}
	svc.cacheQuote(ctx, quote)

	if _, err := svc.Execute(ctx, quote.QuoteID.String()); err != nil {
		t.Fatalf("first execute should succeed: %v", err)
	}
	if _, err := svc.Execute(ctx, quote.QuoteID.String()); domain.CodeOf(err) != domain.ErrCodeNotFound {
		t.Fatalf("second execute should 404, got %v", err)
	}
}

func TestLiquidityService_Execute_ExpiredQuote(t *testing.T) {
	cache := newMockCache()
	svc := NewLiquidityService(nil, cache, newMockBus(), testLiquidityConfig(), discardLogger())
	ctx := context.Background()

	quote := &domain.Quote{
		QuoteID:   domain.NewTransactionID(),
		ExpiresAt: time.Now().UTC().Add(-time.Second),
	}
	svc.cacheQuote(ctx, quote)

	_, err := svc.Execute(ctx, quote.QuoteID.String())
	if domain.CodeOf(err) != domain.ErrCodePaymentExpired {
		t.Fatalf("expected PAYMENT_EXPIRED code, got %v", err)
	}
}
