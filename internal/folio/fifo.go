package folio

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skjoshi/folio_tracker_bot/internal/model"
)

// SaleRequest asks to sell Quantity units of one logical holding at a
// uniform SalePrice (paise per unit).
type SaleRequest struct {
	Category  model.Category
	GroupKey  string
	Quantity  decimal.Decimal
	SalePrice int64
	SaleDate  time.Time
}

// AllocateSale allocates req.Quantity across the active lots of the
// holding, oldest purchase date first (lot id breaks ties), and returns
// the staged per-lot effects. Nothing is mutated here: the caller commits
// the effects as a single batch or not at all.
//
// A request for more than the total remaining quantity fails whole with
// ErrInsufficientQuantity; a zero or negative quantity is ErrInvalidRequest,
// not a no-op.
func AllocateSale(lots []model.Lot, req SaleRequest) ([]model.SaleEffect, error) {
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrInvalidRequest)
	}
	if req.SalePrice <= 0 {
		return nil, fmt.Errorf("%w: sale price must be > 0", ErrInvalidRequest)
	}
	if req.SaleDate.IsZero() {
		return nil, fmt.Errorf("%w: sale date is required", ErrInvalidRequest)
	}

	matched := make([]model.Lot, 0, len(lots))
	total := decimal.Zero
	for _, l := range lots {
		if l.Status != model.StatusActive || l.Category != req.Category || l.GroupKey() != req.GroupKey {
			continue
		}
		if !l.RemainingQty.IsPositive() {
			continue
		}
		matched = append(matched, l)
		total = total.Add(l.RemainingQty)
	}

	if total.LessThan(req.Quantity) {
		return nil, fmt.Errorf("%w: requested %s, remaining %s", ErrInsufficientQuantity, req.Quantity, total)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].PurchaseDate.Equal(matched[j].PurchaseDate) {
			return matched[i].LotID < matched[j].LotID
		}
		return matched[i].PurchaseDate.Before(matched[j].PurchaseDate)
	})

	effects := make([]model.SaleEffect, 0, len(matched))
	left := req.Quantity
	for _, l := range matched {
		if !left.IsPositive() {
			break
		}

		take := decimal.Min(left, l.RemainingQty)

		// Proportional cost basis of the quantity taken, rounded once.
		costBasis := proportionalPaise(take, l.OriginalQty, l.InvestedAmount)
		saleValue := QtyTimesPaise(take, req.SalePrice)

		remainingAfter := l.RemainingQty.Sub(take)

		effects = append(effects, model.SaleEffect{
			LotID:          l.LotID,
			Version:        l.Version,
			RemainingAfter: remainingAfter,
			Exhausted:      remainingAfter.IsZero(),
			Sale: model.SaleRecord{
				QuantitySold:   take,
				SalePrice:      req.SalePrice,
				SaleDate:       req.SaleDate,
				RealizedProfit: saleValue - costBasis,
			},
		})

		left = left.Sub(take)
	}

	return effects, nil
}
