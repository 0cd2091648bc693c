package folio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/skjoshi/folio_tracker_bot/internal/model"
)

// Merge builds one MergedPosition per (category, group key) over the
// active lots. Inactive lots never join a position, but their sales
// histories still count towards the position's lifetime realized gain.
// Positions are recomputed fresh on every call.
func Merge(lots []model.Lot) []model.MergedPosition {
	type groupID struct {
		category model.Category
		key      string
	}

	groups := make(map[groupID][]model.Lot)
	realized := make(map[groupID]int64)

	for _, l := range lots {
		id := groupID{category: l.Category, key: l.GroupKey()}
		realized[id] += LotRealizedGain(l)
		if l.Status == model.StatusActive && l.RemainingQty.IsPositive() {
			groups[id] = append(groups[id], l)
		}
	}

	positions := make([]model.MergedPosition, 0, len(groups))
	for id, members := range groups {
		sortLotsFIFO(members)

		totalQty := decimal.Zero
		weightedCost := decimal.Zero
		investedExact := decimal.Zero
		currentPrice := int64(0)

		for _, l := range members {
			totalQty = totalQty.Add(l.RemainingQty)
			weightedCost = weightedCost.Add(l.RemainingQty.Mul(decimal.NewFromInt(l.UnitCost)))
			investedExact = investedExact.Add(remainingInvestedExact(l))
			if currentPrice == 0 {
				// all lots of a holding share the same mark price
				currentPrice = l.CurrentPrice
			}
		}

		remainingInvested := investedExact.Round(0).IntPart()
		currentValue := QtyTimesPaise(totalQty, currentPrice)

		pos := model.MergedPosition{
			Category:          id.category,
			GroupKey:          id.key,
			Ticker:            members[0].Ticker,
			FundHouse:         members[0].FundHouse,
			SchemeName:        members[0].SchemeName,
			TotalRemainingQty: totalQty,
			AvgUnitCost:       weightedCost.Div(totalQty).Round(0).IntPart(),
			RemainingInvested: remainingInvested,
			CurrentPrice:      currentPrice,
			CurrentValue:      currentValue,
			RealizedGain:      realized[id],
			UnrealizedGain:    currentValue - remainingInvested,
			Lots:              members,
		}
		positions = append(positions, pos)
	}

	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Category != positions[j].Category {
			return positions[i].Category < positions[j].Category
		}
		return positions[i].GroupKey < positions[j].GroupKey
	})

	return positions
}

// MemberLots returns the active lots of one holding in the order the sale
// engine would consume them, so a caller can preview FIFO consumption
// before selling.
func MemberLots(lots []model.Lot, category model.Category, groupKey string) []model.Lot {
	members := make([]model.Lot, 0)
	for _, l := range lots {
		if l.Category != category || l.GroupKey() != groupKey {
			continue
		}
		if l.Status != model.StatusActive || !l.RemainingQty.IsPositive() {
			continue
		}
		members = append(members, l)
	}
	sortLotsFIFO(members)
	return members
}

func sortLotsFIFO(lots []model.Lot) {
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].PurchaseDate.Equal(lots[j].PurchaseDate) {
			return lots[i].LotID < lots[j].LotID
		}
		return lots[i].PurchaseDate.Before(lots[j].PurchaseDate)
	})
}
