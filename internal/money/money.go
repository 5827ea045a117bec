// Package money converts decimal amounts to integer minor units for bucketing.
package money

import (
	"github.com/shopspring/decimal"
)

// MaxCents bounds every cents value so bucket keys and spans can be added and
// subtracted without overflowing int64.
const MaxCents = int64(1) << 60

var (
	maxCents = decimal.NewFromInt(MaxCents)
	minCents = decimal.NewFromInt(-MaxCents)
)

// MaxTolerance is the widest amount tolerance a matcher accepts.
var MaxTolerance = decimal.New(1, 12)

// Cents returns d rounded half away from zero to two places, in cents,
// saturated to [-MaxCents, MaxCents].
func Cents(d decimal.Decimal) int64 {
	return saturate(d.Round(2).Shift(2))
}

// ToleranceCents returns how many whole cents fit inside tol, saturated to
// MaxCents. A negative tolerance yields zero.
func ToleranceCents(tol decimal.Decimal) int64 {
	if tol.IsNegative() {
		return 0
	}
	return saturate(tol.Shift(2).Floor())
}

func saturate(c decimal.Decimal) int64 {
	switch {
	case c.GreaterThan(maxCents):
		return MaxCents
	case c.LessThan(minCents):
		return -MaxCents
	}
	return c.IntPart()
}

// WithinTolerance reports whether |a-b| <= tol using exact decimal arithmetic.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

// IsMultiple reports whether d is a non-zero exact multiple of m.
func IsMultiple(d, m decimal.Decimal) bool {
	if d.IsZero() || !m.IsPositive() {
		return false
	}
	return d.Abs().Mod(m).IsZero()
}

// LeadingDigit returns the first significant digit of |d|, or 0 for zero.
func LeadingDigit(d decimal.Decimal) int {
	d = d.Abs()
	if d.IsZero() {
		return 0
	}
	for _, r := range d.String() {
		if r >= '1' && r <= '9' {
			return int(r - '0')
		}
	}
	return 0
}

// Float returns d as a float64 for statistics.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
