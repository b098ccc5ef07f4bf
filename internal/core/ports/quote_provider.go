package ports

import (
	"context"

	"github.com/deltran/settlement-gateway/internal/core/domain"
)

// QuoteProvider is one liquidity source the coordinator dispatches to in
// parallel. Implementations are deterministic stubs (§4.4) rather than
// real bank/market connections.
type QuoteProvider interface {
	Name() string
	// Supports reports whether this provider quotes the given pair at all,
	// letting the coordinator distinguish "nobody covers this pair"
	// (LIQUIDITY_UNAVAILABLE) from "covered, but every dispatch failed or
	// timed out" (EXTERNAL_SERVICE_ERROR).
	Supports(base, quote string) bool
	Quote(ctx context.Context, base, quote string, amount domain.Money) (*domain.Quote, error)
}
