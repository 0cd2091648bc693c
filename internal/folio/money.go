package folio

import (
	"github.com/shopspring/decimal"

	"github.com/skjoshi/folio_tracker_bot/internal/model"
)

// Rounding mode everywhere in this package: round half away from zero
// (shopspring Round), applied once per derived value. Derived values are
// never re-rounded or chained through further arithmetic.

// QtyTimesPaise returns round(qty × price) in paise.
func QtyTimesPaise(qty decimal.Decimal, price int64) int64 {
	return qty.Mul(decimal.NewFromInt(price)).Round(0).IntPart()
}

// proportionalPaise returns round(part / whole × amount) in paise,
// multiplying before dividing to keep the intermediate exact.
func proportionalPaise(part, whole decimal.Decimal, amount int64) int64 {
	return part.Mul(decimal.NewFromInt(amount)).Div(whole).Round(0).IntPart()
}

// RemainingInvested derives the invested amount still backing the
// remaining quantity of a lot. The stored InvestedAmount is never mutated
// by sales, so an untouched lot returns it exactly.
func RemainingInvested(l model.Lot) int64 {
	if l.RemainingQty.Equal(l.OriginalQty) {
		return l.InvestedAmount
	}
	if l.RemainingQty.IsZero() {
		return 0
	}
	return proportionalPaise(l.RemainingQty, l.OriginalQty, l.InvestedAmount)
}

// remainingInvestedExact is the unrounded form used when summing over a
// group, so the group total is rounded once at the point of summation.
func remainingInvestedExact(l model.Lot) decimal.Decimal {
	if l.RemainingQty.Equal(l.OriginalQty) {
		return decimal.NewFromInt(l.InvestedAmount)
	}
	if l.RemainingQty.IsZero() {
		return decimal.Zero
	}
	return l.RemainingQty.Mul(decimal.NewFromInt(l.InvestedAmount)).Div(l.OriginalQty)
}

// LotRealizedGain sums the realized profit of every sale recorded against
// the lot. Sales are immutable, so this is exact integer arithmetic.
func LotRealizedGain(l model.Lot) int64 {
	var gain int64
	for _, s := range l.SalesHistory {
		gain += s.RealizedProfit
	}
	return gain
}
