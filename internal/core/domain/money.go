package domain

import "github.com/shopspring/decimal"

// Money is a fixed-point amount, always carried at 2 fractional digits per
// spec §3. It wraps decimal.Decimal rather than float64 so that netting
// sums never accumulate binary rounding error.
type Money struct {
	decimal.Decimal
}

// NewMoney constructs a Money rounded to 2 decimal places.
func NewMoney(d decimal.Decimal) Money {
	return Money{d.Round(2)}
}

// ParseMoney parses a decimal string (e.g. a JSON "amount" field).
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(d), nil
}

func ZeroMoney() Money { return Money{decimal.Zero} }

func (m Money) IsPositive() bool { return m.Decimal.IsPositive() }

func (m Money) Add(other Money) Money { return NewMoney(m.Decimal.Add(other.Decimal)) }

func (m Money) Sub(other Money) Money { return NewMoney(m.Decimal.Sub(other.Decimal)) }

func (m Money) Neg() Money { return NewMoney(m.Decimal.Neg()) }

func (m Money) Abs() Money { return NewMoney(m.Decimal.Abs()) }

// ExceedsTolerance reports whether |m| > tolerance, used for the I3
// rounding-tolerance check (ε ≤ 0.01).
func (m Money) ExceedsTolerance(tolerance decimal.Decimal) bool {
	return m.Decimal.Abs().GreaterThan(tolerance)
}

// MulFloat multiplies by a plain float64 rate (FX conversion, reserve
// ratios) — precision loss here is acceptable, these are audit/reporting
// figures, never ledger postings.
func (m Money) MulFloat(rate float64) Money {
	return NewMoney(m.Decimal.Mul(decimal.NewFromFloat(rate)))
}

func (m Money) Float64() float64 {
	f, _ := m.Decimal.Float64()
	return f
}
