package telebotConverter

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/skjoshi/folio_tracker_bot/internal/model"
	"github.com/skjoshi/folio_tracker_bot/internal/model/tg/tgCallback"
	"github.com/skjoshi/folio_tracker_bot/utils"
)

func PortfolioResponse(owner string, positions []model.MergedPosition) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 Portfolio of %s\n\n", owner))

	if len(positions) == 0 {
		sb.WriteString("No active holdings. Use /addlot to record a purchase.\n")
	}

	for i, pos := range positions {
		displayName := pos.Ticker
		if pos.Category != model.CategoryEquity {
			displayName = pos.FundHouse + " - " + pos.SchemeName
		}

		sb.WriteString(fmt.Sprintf("%d. *%s* (%s)\n", i+1, displayName, pos.Category))
		sb.WriteString(fmt.Sprintf("   ▸ Units: %s across %d lots\n", utils.FormatQty(pos.TotalRemainingQty), len(pos.Lots)))
		sb.WriteString(fmt.Sprintf("   ▸ Avg cost: %s\n", utils.FormatPaise(pos.AvgUnitCost)))
		sb.WriteString(fmt.Sprintf("   ▸ Invested: %s\n", utils.FormatPaise(pos.RemainingInvested)))
		sb.WriteString(fmt.Sprintf("   ▸ Price: %s\n", utils.FormatPaise(pos.CurrentPrice)))
		sb.WriteString(fmt.Sprintf("   ▸ Value: *%s*\n", utils.FormatPaise(pos.CurrentValue)))
		sb.WriteString(fmt.Sprintf("   ▸ Unrealized: %s\n", signedPaise(pos.UnrealizedGain)))
		if pos.RealizedGain != 0 {
			sb.WriteString(fmt.Sprintf("   ▸ Realized so far: %s\n", signedPaise(pos.RealizedGain)))
		}
		sb.WriteString("\n")
	}

	summaryBtn := markup.Data("📈 Summary", tgCallback.ShowSummary)
	soldBtn := markup.Data("📜 Sold", tgCallback.ShowSold)
	addBtn := markup.Data("➕ Add lot", tgCallback.AddLot)
	sellBtn := markup.Data("➖ Sell", tgCallback.SellHolding)
	reportBtn := markup.Data("📄 Export report", tgCallback.ExportReport)
	markup.Inline(
		markup.Row(summaryBtn, soldBtn),
		markup.Row(addBtn, sellBtn),
		markup.Row(reportBtn),
	)

	return sb.String(), markup
}

func SummaryResponse(owner string, summary model.PortfolioSummary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📈 Summary for %s\n\n", owner))

	writeTotals(&sb, "Overall", summary.Overall)

	for _, category := range []model.Category{model.CategoryFund, model.CategorySIP, model.CategoryEquity} {
		if totals, ok := summary.ByCategory[category]; ok {
			writeTotals(&sb, string(category), totals)
		}
	}

	cutoff := utils.FormatDate(summary.Timeline.Cutoff)
	writeTotals(&sb, "Before "+cutoff, summary.Timeline.BeforeCutoff)
	writeTotals(&sb, "Since "+cutoff, summary.Timeline.AfterCutoff)

	for _, warning := range summary.Warnings {
		sb.WriteString(fmt.Sprintf("⚠️ %s\n", warning))
	}

	return sb.String()
}

func writeTotals(sb *strings.Builder, label string, totals model.GainTotals) {
	sb.WriteString(fmt.Sprintf("*%s*\n", label))
	sb.WriteString(fmt.Sprintf("   ▸ Invested: %s\n", utils.FormatPaise(totals.Invested)))
	sb.WriteString(fmt.Sprintf("   ▸ Value: %s\n", utils.FormatPaise(totals.CurrentValue)))
	sb.WriteString(fmt.Sprintf("   ▸ Realized: %s\n", signedPaise(totals.RealizedGain)))
	sb.WriteString(fmt.Sprintf("   ▸ Unrealized: %s\n", signedPaise(totals.UnrealizedGain)))
	sb.WriteString(fmt.Sprintf("   ▸ Gain: %s\n\n", utils.FormatPercent(totals.PercentageGain)))
}

func SoldResponse(owner string, groups []model.SoldGroup) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📜 Sold investments of %s\n\n", owner))

	if len(groups) == 0 {
		sb.WriteString("Nothing fully sold yet.\n")
		return sb.String()
	}

	for _, group := range groups {
		sb.WriteString(fmt.Sprintf("*%s* (%s)\n", group.DisplayName, group.Category))
		sb.WriteString(fmt.Sprintf("   ▸ Sold: %s units\n", utils.FormatQty(group.TotalQtySold)))
		sb.WriteString(fmt.Sprintf("   ▸ Invested: %s\n", utils.FormatPaise(group.OriginalInvested)))
		sb.WriteString(fmt.Sprintf("   ▸ Realized: %s (%s)\n", signedPaise(group.RealizedGain), utils.FormatPercent(group.RealizedGainPct)))
		for _, sale := range group.Sales {
			sb.WriteString(fmt.Sprintf("      • %s: %s @ %s, profit %s\n",
				utils.FormatDate(sale.SaleDate),
				utils.FormatQty(sale.QuantitySold),
				utils.FormatPaise(sale.SalePrice),
				signedPaise(sale.RealizedProfit),
			))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func LotAddedResponse(lot model.Lot) string {
	var sb strings.Builder

	sb.WriteString("✅ Lot recorded\n")
	sb.WriteString(fmt.Sprintf("   ▸ #%d %s (%s)\n", lot.LotID, lot.DisplayName(), lot.Category))
	sb.WriteString(fmt.Sprintf("   ▸ Units: %s @ %s\n", utils.FormatQty(lot.OriginalQty), utils.FormatPaise(lot.UnitCost)))
	sb.WriteString(fmt.Sprintf("   ▸ Invested: %s\n", utils.FormatPaise(lot.InvestedAmount)))
	sb.WriteString(fmt.Sprintf("   ▸ Purchased: %s\n", utils.FormatDate(lot.PurchaseDate)))

	return sb.String()
}

func SaleResponse(effects []model.SaleEffect) string {
	var sb strings.Builder

	totalProfit := int64(0)

	sb.WriteString("✅ Sale recorded\n")
	for _, e := range effects {
		totalProfit += e.Sale.RealizedProfit
		line := fmt.Sprintf("   ▸ Lot #%d: sold %s, profit %s", e.LotID, utils.FormatQty(e.Sale.QuantitySold), signedPaise(e.Sale.RealizedProfit))
		if e.Exhausted {
			line += " (exhausted)"
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString(fmt.Sprintf("   ▸ Total realized: *%s*\n", signedPaise(totalProfit)))

	return sb.String()
}

func signedPaise(paise int64) string {
	if paise > 0 {
		return "+" + utils.FormatPaise(paise)
	}
	return utils.FormatPaise(paise)
}
