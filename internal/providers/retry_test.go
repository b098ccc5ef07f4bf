package providers

import (
	"context"
	"testing"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
)

// fakeFlakyProvider fails its first failN calls with the given error, then
// succeeds, recording how many times Quote was invoked.
type fakeFlakyProvider struct {
	failN int
	err   error
	calls int
}

func (f *fakeFlakyProvider) Name() string                    { return "flaky" }
func (f *fakeFlakyProvider) Supports(base, quote string) bool { return true }

func (f *fakeFlakyProvider) Quote(ctx context.Context, base, quote string, amount domain.Money) (*domain.Quote, error) {
	f.calls++
	if f.calls <= f.failN {
		return nil, f.err
	}
	return &domain.Quote{Source: "flaky"}, nil
}

func TestRetryProvider_RetriesOnExternalServiceError(t *testing.T) {
	inner := &fakeFlakyProvider{failN: 2, err: domain.NewError(domain.ErrCodeExternalService, "upstream unavailable")}
	p := WrapRetry(inner, RetryConfig{BaseDelay: time.Millisecond, MaxRetries: 3})

	q, err := p.Quote(context.Background(), "USD", "EUR", domain.ZeroMoney())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Source != "flaky" {
		t.Fatalf("unexpected quote: %+v", q)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3 (2 failures + 1 success)", inner.calls)
	}
}

func TestRetryProvider_DoesNotRetryNonTransientError(t *testing.T) {
	inner := &fakeFlakyProvider{failN: 10, err: domain.NewError(domain.ErrCodeValidation, "bad pair")}
	p := WrapRetry(inner, RetryConfig{BaseDelay: time.Millisecond, MaxRetries: 3})

	_, err := p.Quote(context.Background(), "USD", "EUR", domain.ZeroMoney())
	if domain.CodeOf(err) != domain.ErrCodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on non-transient error)", inner.calls)
	}
}

func TestRetryProvider_ExhaustsRetries(t *testing.T) {
	inner := &fakeFlakyProvider{failN: 100, err: domain.NewError(domain.ErrCodeExternalService, "down")}
	p := WrapRetry(inner, RetryConfig{BaseDelay: time.Millisecond, MaxRetries: 2})

	_, err := p.Quote(context.Background(), "USD", "EUR", domain.ZeroMoney())
	if domain.CodeOf(err) != domain.ErrCodeExternalService {
		t.Fatalf("expected ErrCodeExternalService after exhausting retries, got %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3 (1 initial + 2 retries)", inner.calls)
	}
}

func TestRetryProvider_RespectsContextCancellation(t *testing.T) {
	inner := &fakeFlakyProvider{failN: 10, err: domain.NewError(domain.ErrCodeExternalService, "down")}
	p := WrapRetry(inner, RetryConfig{BaseDelay: 50 * time.Millisecond, MaxRetries: 10})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := p.Quote(ctx, "USD", "EUR", domain.ZeroMoney())
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWrapRetry_NoRetriesReturnsProviderUnwrapped(t *testing.T) {
	inner := &fakeFlakyProvider{}
	if WrapRetry(inner, RetryConfig{MaxRetries: 0}) != inner {
		t.Fatalf("expected MaxRetries=0 to return the provider unwrapped")
	}
}
