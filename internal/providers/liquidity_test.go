package providers

import (
	"context"
	"testing"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/shopspring/decimal"
)

func TestStub_QuoteRejectsUnsupportedPair(t *testing.T) {
	p := P2P()
	_, err := p.Quote(context.Background(), "JPY", "CHF", domain.NewMoney(decimal.NewFromInt(1000)))
	if domain.CodeOf(err) != domain.ErrCodeExternalService {
		t.Fatalf("expected ErrCodeExternalService for unsupported pair, got %v", err)
	}
}

func TestStub_QuoteUsesMockRateAndExpiry(t *testing.T) {
	p := Treasury()
	amount := domain.NewMoney(decimal.NewFromInt(1000))
	q, err := p.Quote(context.Background(), "USD", "EUR", amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.MidRate != 0.85 {
		t.Fatalf("mid rate = %v, want 0.85 from the static table", q.MidRate)
	}
	if q.TTLSeconds != 30 {
		t.Fatalf("ttl = %d, want 30", q.TTLSeconds)
	}
	if q.Expired(time.Now().UTC()) {
		t.Fatalf("freshly issued quote should not be expired")
	}
	if q.Expired(q.ExpiresAt.Add(time.Second)) != true {
		t.Fatalf("quote past its expiry should report expired")
	}
}

func TestStub_QuoteRespectsContextCancellation(t *testing.T) {
	p := P2P() // 120ms simulated latency
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Quote(ctx, "USD", "EUR", domain.NewMoney(decimal.NewFromInt(1000)))
	if err != context.DeadlineExceeded {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestBestQuote_PicksHighestUtility(t *testing.T) {
	quotes := []*domain.Quote{
		{Source: "a", UtilityScore: 0.5},
		{Source: "b", UtilityScore: 0.9},
		{Source: "c", UtilityScore: 0.7},
	}
	best := domain.BestQuote(quotes)
	if best.Source != "b" {
		t.Fatalf("best quote source = %q, want %q", best.Source, "b")
	}
}
