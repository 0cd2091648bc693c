package folio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/skjoshi/folio_tracker_bot/internal/model"
)

// GroupSold aggregates inactive lots per logical holding for the
// sold-investments report: total quantity sold, lifetime realized gain
// and its percentage of the original invested capital, with the sale
// entries ordered newest first.
func GroupSold(lots []model.Lot) []model.SoldGroup {
	type groupID struct {
		category model.Category
		key      string
	}

	groups := make(map[groupID]*model.SoldGroup)

	for _, l := range lots {
		if l.Status != model.StatusInactive {
			continue
		}

		id := groupID{category: l.Category, key: l.GroupKey()}
		g, ok := groups[id]
		if !ok {
			g = &model.SoldGroup{
				Category:     l.Category,
				GroupKey:     l.GroupKey(),
				DisplayName:  l.DisplayName(),
				TotalQtySold: decimal.Zero,
			}
			groups[id] = g
		}

		g.Lots = append(g.Lots, l)
		g.OriginalInvested += l.InvestedAmount

		if len(l.SalesHistory) > 0 {
			for _, s := range l.SalesHistory {
				g.Sales = append(g.Sales, model.GroupSale{
					LotID:          l.LotID,
					QuantitySold:   s.QuantitySold,
					SalePrice:      s.SalePrice,
					SaleDate:       s.SaleDate,
					RealizedProfit: s.RealizedProfit,
				})
				g.TotalQtySold = g.TotalQtySold.Add(s.QuantitySold)
				g.RealizedGain += s.RealizedProfit
			}
			continue
		}

		// Lots sold before per-sale history existed carry no records:
		// synthesize one entry from the lot itself, valued at its last mark.
		if l.SoldDate != nil {
			saleValue := QtyTimesPaise(l.OriginalQty, l.CurrentPrice)
			profit := saleValue - l.InvestedAmount
			g.Sales = append(g.Sales, model.GroupSale{
				LotID:          l.LotID,
				QuantitySold:   l.OriginalQty,
				SalePrice:      l.CurrentPrice,
				SaleDate:       *l.SoldDate,
				RealizedProfit: profit,
			})
			g.TotalQtySold = g.TotalQtySold.Add(l.OriginalQty)
			g.RealizedGain += profit
		}
	}

	result := make([]model.SoldGroup, 0, len(groups))
	for _, g := range groups {
		sort.Slice(g.Sales, func(i, j int) bool {
			return g.Sales[i].SaleDate.After(g.Sales[j].SaleDate)
		})

		if g.OriginalInvested > 0 {
			g.RealizedGainPct = decimal.NewFromInt(g.RealizedGain).
				Div(decimal.NewFromInt(g.OriginalInvested)).
				Mul(decimal.NewFromInt(100)).
				Round(2)
		}

		result = append(result, *g)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Category != result[j].Category {
			return result[i].Category < result[j].Category
		}
		return result[i].DisplayName < result[j].DisplayName
	})

	return result
}
