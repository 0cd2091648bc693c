package folio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skjoshi/folio_tracker_bot/internal/model"
)

func TestMergeWeightedAverageCost(t *testing.T) {
	// 10 @ 100 and 20 @ 130 merge to 30 @ 120
	lots := []model.Lot{
		equityLot(1, "TCS", "10", 100, 1000, "2024-01-10"),
		equityLot(2, "TCS", "20", 130, 2600, "2024-02-10"),
	}

	positions := Merge(lots)
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Equal(t, "TCS", p.GroupKey)
	assert.True(t, p.TotalRemainingQty.Equal(qty("30")))
	assert.Equal(t, int64(120), p.AvgUnitCost)
	assert.Equal(t, int64(3600), p.RemainingInvested)
}

func TestMergeSeparatesHoldings(t *testing.T) {
	lots := []model.Lot{
		equityLot(1, "TCS", "10", 100, 1000, "2024-01-10"),
		equityLot(2, "INFY", "5", 200, 1000, "2024-01-10"),
		fundLot(3, "100", 5000, 500000, "2024-01-10"),
	}

	positions := Merge(lots)
	require.Len(t, positions, 3)

	keys := make(map[string]model.Category)
	for _, p := range positions {
		keys[p.GroupKey] = p.Category
	}
	assert.Equal(t, model.CategoryEquity, keys["TCS"])
	assert.Equal(t, model.CategoryEquity, keys["INFY"])
	assert.Equal(t, model.CategoryFund, keys["HDFC Mutual Fund|HDFC Flexi Cap Fund"])
}

func TestMergeUsesRemainingNotOriginalQuantities(t *testing.T) {
	partial := fundLot(1, "100", 5000, 500000, "2024-01-10")
	partial.RemainingQty = qty("40")

	whole := fundLot(2, "50", 6000, 300000, "2024-02-10")

	positions := Merge([]model.Lot{partial, whole})
	require.Len(t, positions, 1)

	p := positions[0]
	assert.True(t, p.TotalRemainingQty.Equal(qty("90")))
	// weighted by remaining: (40×5000 + 50×6000) / 90
	assert.Equal(t, int64(5556), p.AvgUnitCost)
	// derived invested: 40/100×500000 + 300000
	assert.Equal(t, int64(500000), p.RemainingInvested)
}

func TestMergeGroupInvestedRoundsOnceAtSummation(t *testing.T) {
	// each term is 33.33 paise exact-thirds; per-lot rounding would give
	// 33+33=66, one rounding at the sum gives 67
	a := fundLot(1, "3", 33, 100, "2024-01-10")
	a.RemainingQty = qty("1")
	b := fundLot(2, "3", 33, 100, "2024-02-10")
	b.RemainingQty = qty("1")

	positions := Merge([]model.Lot{a, b})
	require.Len(t, positions, 1)
	assert.Equal(t, int64(67), positions[0].RemainingInvested)
}

func TestMergeKeepsRealizedGainOfExhaustedLots(t *testing.T) {
	sold := equityLot(1, "TCS", "10", 100, 1000, "2024-01-10")
	sold.RemainingQty = qty("0")
	sold.Status = model.StatusInactive
	d := date("2025-01-10")
	sold.SoldDate = &d
	sold.SalesHistory = []model.SaleRecord{
		{QuantitySold: qty("10"), SalePrice: 150, SaleDate: d, RealizedProfit: 500},
	}

	open := equityLot(2, "TCS", "5", 120, 600, "2024-06-10")
	open.SalesHistory = []model.SaleRecord{
		{QuantitySold: qty("2"), SalePrice: 140, SaleDate: d, RealizedProfit: 40},
	}
	open.OriginalQty = qty("7")

	positions := Merge([]model.Lot{sold, open})
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Equal(t, int64(540), p.RealizedGain)
	require.Len(t, p.Lots, 1)
	assert.Equal(t, int64(2), p.Lots[0].LotID)
}

func TestMergeExcludesInactiveFromPositions(t *testing.T) {
	sold := equityLot(1, "TCS", "10", 100, 1000, "2024-01-10")
	sold.RemainingQty = qty("0")
	sold.Status = model.StatusInactive

	positions := Merge([]model.Lot{sold})
	assert.Empty(t, positions)
}

func TestMemberLotsReturnsFIFOOrder(t *testing.T) {
	lots := []model.Lot{
		equityLot(3, "TCS", "5", 120, 600, "2024-06-10"),
		equityLot(1, "TCS", "10", 100, 1000, "2024-01-10"),
		equityLot(2, "TCS", "8", 110, 880, "2024-01-10"),
		equityLot(4, "INFY", "5", 200, 1000, "2023-06-10"),
	}

	members := MemberLots(lots, model.CategoryEquity, "TCS")
	require.Len(t, members, 3)
	assert.Equal(t, int64(1), members[0].LotID)
	assert.Equal(t, int64(2), members[1].LotID)
	assert.Equal(t, int64(3), members[2].LotID)
}

func TestGroupSoldAggregatesHistory(t *testing.T) {
	d1, d2 := date("2025-01-10"), date("2025-03-10")

	lotA := fundLot(1, "100", 5000, 500000, "2024-01-10")
	lotA.RemainingQty = qty("0")
	lotA.Status = model.StatusInactive
	lotA.SoldDate = &d2
	lotA.SalesHistory = []model.SaleRecord{
		{QuantitySold: qty("60"), SalePrice: 6000, SaleDate: d1, RealizedProfit: 60000},
		{QuantitySold: qty("40"), SalePrice: 7000, SaleDate: d2, RealizedProfit: 80000},
	}

	groups := GroupSold([]model.Lot{lotA})
	require.Len(t, groups, 1)

	g := groups[0]
	assert.True(t, g.TotalQtySold.Equal(qty("100")))
	assert.Equal(t, int64(140000), g.RealizedGain)
	assert.Equal(t, "28", g.RealizedGainPct.String()) // 140000/500000×100
	require.Len(t, g.Sales, 2)
	assert.Equal(t, d2, g.Sales[0].SaleDate) // newest first
}

func TestGroupSoldSynthesizesLegacySale(t *testing.T) {
	d := date("2025-01-10")
	legacy := equityLot(1, "TCS", "10", 100, 1000, "2024-01-10")
	legacy.RemainingQty = qty("0")
	legacy.Status = model.StatusInactive
	legacy.SoldDate = &d
	legacy.CurrentPrice = 150

	groups := GroupSold([]model.Lot{legacy})
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Sales, 1)
	assert.Equal(t, int64(500), groups[0].RealizedGain) // 10×150 − 1000
}
