package folio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skjoshi/folio_tracker_bot/internal/model"
)

func TestSummarizeEmptyPortfolio(t *testing.T) {
	s := Summarize(nil, date("2025-04-01"))

	assert.Equal(t, int64(0), s.Overall.Invested)
	assert.Equal(t, int64(0), s.Overall.CurrentValue)
	assert.True(t, s.Overall.PercentageGain.IsZero())
	assert.Empty(t, s.Warnings)
}

func TestSummarizeUsesDerivedRemainingInvested(t *testing.T) {
	// partially sold lot: 30 of 50 units remain, invested 3000.00. The
	// summary must carry 30/50×3000.00, not the stored full amount.
	l := fundLot(1, "50", 6000, 300000, "2024-06-10")
	l.RemainingQty = qty("30")
	l.CurrentPrice = 7000
	l.SalesHistory = []model.SaleRecord{
		{QuantitySold: qty("20"), SalePrice: 7000, SaleDate: date("2025-06-01"), RealizedProfit: 20000},
	}

	s := Summarize([]model.Lot{l}, date("2025-04-01"))

	assert.Equal(t, int64(180000), s.Overall.Invested)
	assert.Equal(t, int64(210000), s.Overall.CurrentValue) // 30×70.00
	assert.Equal(t, int64(20000), s.Overall.RealizedGain)
	assert.Equal(t, int64(30000), s.Overall.UnrealizedGain)
	// (210000 + 20000 − 180000) / 180000 × 100
	assert.Equal(t, "27.78", s.Overall.PercentageGain.String())
}

func TestSummarizeRealizedGainSurvivesInactiveLots(t *testing.T) {
	d := date("2025-06-01")
	sold := equityLot(1, "TCS", "10", 100000, 1000000, "2024-01-10")
	sold.RemainingQty = qty("0")
	sold.Status = model.StatusInactive
	sold.SoldDate = &d
	sold.SalesHistory = []model.SaleRecord{
		{QuantitySold: qty("10"), SalePrice: 150000, SaleDate: d, RealizedProfit: 500000},
	}

	s := Summarize([]model.Lot{sold}, date("2025-04-01"))

	assert.Equal(t, int64(0), s.Overall.Invested)
	assert.Equal(t, int64(0), s.Overall.CurrentValue)
	assert.Equal(t, int64(500000), s.Overall.RealizedGain)
	assert.Equal(t, int64(500000), s.ByCategory[model.CategoryEquity].RealizedGain)
	// no capital left at risk: percentage reports 0 rather than dividing by zero
	assert.True(t, s.Overall.PercentageGain.IsZero())
}

func TestSummarizeCategorySubTotals(t *testing.T) {
	lots := []model.Lot{
		equityLot(1, "TCS", "10", 100000, 1000000, "2024-01-10"),
		fundLot(2, "100", 5000, 500000, "2024-01-10"),
	}
	lots[0].CurrentPrice = 120000
	lots[1].CurrentPrice = 5500

	s := Summarize(lots, date("2025-04-01"))

	eq := s.ByCategory[model.CategoryEquity]
	assert.Equal(t, int64(1000000), eq.Invested)
	assert.Equal(t, int64(1200000), eq.CurrentValue)

	fund := s.ByCategory[model.CategoryFund]
	assert.Equal(t, int64(500000), fund.Invested)
	assert.Equal(t, int64(550000), fund.CurrentValue)

	sip := s.ByCategory[model.CategorySIP]
	assert.Equal(t, int64(0), sip.Invested)

	assert.Equal(t, eq.Invested+fund.Invested, s.Overall.Invested)
	assert.Equal(t, eq.CurrentValue+fund.CurrentValue, s.Overall.CurrentValue)
}

func TestSummarizeTimelineBucketsByPurchaseDate(t *testing.T) {
	cutoff := date("2025-04-01")

	before := fundLot(1, "100", 5000, 500000, "2025-03-31")
	after := fundLot(2, "100", 5000, 500000, "2025-04-01") // on the cutoff counts as after

	// realized gain follows the purchase lot's bucket even when the sale
	// happened on the other side of the cutoff
	before.RemainingQty = qty("80")
	before.SalesHistory = []model.SaleRecord{
		{QuantitySold: qty("20"), SalePrice: 6000, SaleDate: date("2025-07-01"), RealizedProfit: 20000},
	}

	s := Summarize([]model.Lot{before, after}, cutoff)

	assert.Equal(t, int64(400000), s.Timeline.BeforeCutoff.Invested)
	assert.Equal(t, int64(20000), s.Timeline.BeforeCutoff.RealizedGain)
	assert.Equal(t, int64(500000), s.Timeline.AfterCutoff.Invested)
	assert.Equal(t, int64(0), s.Timeline.AfterCutoff.RealizedGain)
}

func TestSummarizeExcludesMalformedLotWithWarning(t *testing.T) {
	good := fundLot(1, "100", 5000, 500000, "2024-01-10")

	bad := fundLot(2, "100", 5000, 500000, "2024-01-10")
	bad.RemainingQty = qty("150") // remaining above original

	inconsistent := fundLot(3, "100", 5000, 500000, "2024-01-10")
	inconsistent.RemainingQty = qty("0") // zero remaining but still ACTIVE

	s := Summarize([]model.Lot{good, bad, inconsistent}, date("2025-04-01"))

	require.Len(t, s.Warnings, 2)
	assert.Contains(t, s.Warnings[0], "lot 2")
	assert.Contains(t, s.Warnings[1], "lot 3")
	assert.Equal(t, int64(500000), s.Overall.Invested)
}
