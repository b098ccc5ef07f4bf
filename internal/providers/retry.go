package providers

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/domain"
	"github.com/deltran/settlement-gateway/internal/core/ports"
)

// RetryConfig carries the Liquidity Coordinator's per-provider retry
// tunables in from config.RetryConfig without this package depending on
// the config package.
type RetryConfig struct {
	BaseDelay  time.Duration
	MaxRetries int
}

var _ ports.QuoteProvider = (*RetryProvider)(nil)

// RetryProvider wraps a QuoteProvider with the teacher's bank-client retry
// pattern (internal/adapters/bank/retry.go): a bounded number of attempts
// with exponential backoff and jitter, retrying only failures classified
// as transient. It lets a single provider absorb a flaky dispatch round
// instead of being dropped from the fan-out on its first error.
type RetryProvider struct {
	inner ports.QuoteProvider
	cfg   RetryConfig
}

// WrapRetry decorates provider with retry behavior if cfg requests any
// retries; a MaxRetries of 0 returns provider unwrapped.
func WrapRetry(provider ports.QuoteProvider, cfg RetryConfig) ports.QuoteProvider {
	if cfg.MaxRetries <= 0 {
		return provider
	}
	return &RetryProvider{inner: provider, cfg: cfg}
}

func (r *RetryProvider) Name() string { return r.inner.Name() }

func (r *RetryProvider) Supports(base, quote string) bool { return r.inner.Supports(base, quote) }

func (r *RetryProvider) Quote(ctx context.Context, base, quote string, amount domain.Money) (*domain.Quote, error) {
	return retry(ctx, r, func(ctx context.Context) (*domain.Quote, error) {
		return r.inner.Quote(ctx, base, quote, amount)
	})
}

// retry runs operation up to r.cfg.MaxRetries+1 times, stopping as soon as
// it succeeds, the context is done, or the failure isn't retryable.
func retry[T any](ctx context.Context, r *RetryProvider, operation func(context.Context) (*T, error)) (*T, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		result, err := operation(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
		if attempt == r.cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(r.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// isRetryable mirrors RetryBankClient's classification: a deadline miss or
// an EXTERNAL_SERVICE_ERROR from the provider is transient; any other code
// is not retried.
func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return domain.CodeOf(err) == domain.ErrCodeExternalService
}

// backoff returns baseDelay*2^attempt plus up to 1s of jitter, the same
// shape as RetryBankClient.backoff.
func (r *RetryProvider) backoff(attempt int) time.Duration {
	delay := r.cfg.BaseDelay << attempt
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	return delay + jitter
}
