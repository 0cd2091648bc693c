package folio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skjoshi/folio_tracker_bot/internal/model"
)

// totalsAcc accumulates one summary slice. Invested and current value
// stay exact decimals until finalize, so each slice is rounded once.
type totalsAcc struct {
	invested     decimal.Decimal
	currentValue decimal.Decimal
	realized     int64
}

func newTotalsAcc() *totalsAcc {
	return &totalsAcc{invested: decimal.Zero, currentValue: decimal.Zero}
}

func (a *totalsAcc) addActive(l model.Lot) {
	a.invested = a.invested.Add(remainingInvestedExact(l))
	a.currentValue = a.currentValue.Add(l.RemainingQty.Mul(decimal.NewFromInt(l.CurrentPrice)))
}

func (a *totalsAcc) addRealized(gain int64) {
	a.realized += gain
}

func (a *totalsAcc) finalize() model.GainTotals {
	invested := a.invested.Round(0).IntPart()
	currentValue := a.currentValue.Round(0).IntPart()

	t := model.GainTotals{
		Invested:       invested,
		CurrentValue:   currentValue,
		RealizedGain:   a.realized,
		UnrealizedGain: currentValue - invested,
		PercentageGain: decimal.Zero,
	}

	if invested > 0 {
		t.PercentageGain = decimal.NewFromInt(currentValue + a.realized - invested).
			Div(decimal.NewFromInt(invested)).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	return t
}

// Summarize rolls the full lot set into portfolio, category and timeline
// totals. Invested capital of a partially sold lot is always the derived
// remaining-invested, never the stored full-lot amount. Realized gains
// come from every lot's sales history, active or not, and follow the
// purchase lot's timeline bucket, not the sale date.
//
// Malformed lots are excluded with a warning instead of failing the whole
// summary: reads degrade per lot, writes never apply partially.
func Summarize(lots []model.Lot, cutoff time.Time) model.PortfolioSummary {
	overall := newTotalsAcc()
	before := newTotalsAcc()
	after := newTotalsAcc()
	byCategory := map[model.Category]*totalsAcc{
		model.CategoryFund:   newTotalsAcc(),
		model.CategorySIP:    newTotalsAcc(),
		model.CategoryEquity: newTotalsAcc(),
	}

	var warnings []string

	for _, l := range lots {
		if reason := validateLot(l); reason != "" {
			warnings = append(warnings, fmt.Sprintf("lot %d excluded: %s", l.LotID, reason))
			continue
		}

		accs := []*totalsAcc{overall, byCategory[l.Category]}
		if l.PurchaseDate.Before(cutoff) {
			accs = append(accs, before)
		} else {
			accs = append(accs, after)
		}

		gain := LotRealizedGain(l)
		for _, a := range accs {
			a.addRealized(gain)
			if l.Status == model.StatusActive {
				a.addActive(l)
			}
		}
	}

	return model.PortfolioSummary{
		Overall: overall.finalize(),
		ByCategory: map[model.Category]model.GainTotals{
			model.CategoryFund:   byCategory[model.CategoryFund].finalize(),
			model.CategorySIP:    byCategory[model.CategorySIP].finalize(),
			model.CategoryEquity: byCategory[model.CategoryEquity].finalize(),
		},
		Timeline: model.TimelineSummary{
			Cutoff:       cutoff,
			BeforeCutoff: before.finalize(),
			AfterCutoff:  after.finalize(),
		},
		Warnings: warnings,
	}
}

func validateLot(l model.Lot) string {
	switch l.Category {
	case model.CategoryFund, model.CategorySIP, model.CategoryEquity:
	default:
		return fmt.Sprintf("unknown category %q", l.Category)
	}
	if !l.OriginalQty.IsPositive() {
		return "original quantity must be > 0"
	}
	if l.RemainingQty.IsNegative() || l.RemainingQty.GreaterThan(l.OriginalQty) {
		return "remaining quantity out of range"
	}
	if l.InvestedAmount < 0 {
		return "negative invested amount"
	}
	if (l.Status == model.StatusInactive) != l.RemainingQty.IsZero() {
		return "status does not match remaining quantity"
	}
	return ""
}
