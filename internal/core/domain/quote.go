package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuoteTTL is how long a liquidity quote remains executable after issue
// (§4.5).
const QuoteTTL = 30 * time.Second

// Quote is a single provider's offer for a currency pair, produced by the
// Liquidity Coordinator's parallel dispatch round.
type Quote struct {
	QuoteID       uuid.UUID
	FromCurrency  string
	ToCurrency    string
	Amount        Money
	MidRate       float64
	AppliedRate   float64
	Spread        float64
	Source        string
	TTLSeconds    int
	ExpiresAt     time.Time
	UtilityScore  float64
}

// Expired reports whether the quote has passed its TTL.
func (q *Quote) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// BestQuote returns the quote with the highest utility score, per §4.5's
// selection rule. Callers must pass a non-empty slice.
func BestQuote(quotes []*Quote) *Quote {
	best := quotes[0]
	for _, q := range quotes[1:] {
		if q.UtilityScore > best.UtilityScore {
			best = q
		}
	}
	return best
}
