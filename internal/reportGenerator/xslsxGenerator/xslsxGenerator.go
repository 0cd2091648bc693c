package xslsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/skjoshi/folio_tracker_bot/internal/model"
	"github.com/skjoshi/folio_tracker_bot/utils"
)

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

// Generate builds the export workbook: holdings, summary and sale history
// on separate sheets. Money cells are written in rupees so spreadsheet
// formulas work on them directly.
func (g *XSLSXGenerator) Generate(ctx context.Context, report model.ReportData) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillHoldingsSheet(f, report); err != nil {
		return nil, "", err
	}
	if err := g.fillSummarySheet(f, report); err != nil {
		return nil, "", err
	}
	if err := g.fillSalesSheet(f, report); err != nil {
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XSLSXGenerator) headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XSLSXGenerator) fillHoldingsSheet(f *excelize.File, report model.ReportData) error {
	sheetName := "Holdings"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "J1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Holdings of %s on %s", report.Owner, utils.FormatDate(report.GeneratedAt)))

	styleID, err := g.headerStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "category")
	_ = f.SetCellStr(sheetName, "B2", "holding")
	_ = f.SetCellStr(sheetName, "C2", "quantity")
	_ = f.SetCellStr(sheetName, "D2", "avg cost")
	_ = f.SetCellStr(sheetName, "E2", "invested")
	_ = f.SetCellStr(sheetName, "F2", "price")
	_ = f.SetCellStr(sheetName, "G2", "value")
	_ = f.SetCellStr(sheetName, "H2", "unrealized")
	_ = f.SetCellStr(sheetName, "I2", "realized")
	_ = f.SetCellStr(sheetName, "J2", "lots")

	for i, pos := range report.Positions {
		row := i + 3
		displayName := pos.Ticker
		if pos.Category != model.CategoryEquity {
			displayName = pos.FundHouse + " - " + pos.SchemeName
		}
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), string(pos.Category))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), displayName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), pos.TotalRemainingQty.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), rupees(pos.AvgUnitCost))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), rupees(pos.RemainingInvested))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), rupees(pos.CurrentPrice))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), rupees(pos.CurrentValue))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), rupees(pos.UnrealizedGain))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), rupees(pos.RealizedGain))
		_ = f.SetCellInt(sheetName, fmt.Sprintf("J%d", row), int64(len(pos.Lots)))
	}

	return nil
}

func (g *XSLSXGenerator) fillSummarySheet(f *excelize.File, report model.ReportData) error {
	sheetName := "Summary"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "F1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "Portfolio summary")

	styleID, err := g.headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "slice")
	_ = f.SetCellStr(sheetName, "B2", "invested")
	_ = f.SetCellStr(sheetName, "C2", "current value")
	_ = f.SetCellStr(sheetName, "D2", "realized")
	_ = f.SetCellStr(sheetName, "E2", "unrealized")
	_ = f.SetCellStr(sheetName, "F2", "gain %")

	row := 3
	writeTotals := func(label string, totals model.GainTotals) {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), label)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), rupees(totals.Invested))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), rupees(totals.CurrentValue))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), rupees(totals.RealizedGain))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), rupees(totals.UnrealizedGain))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), totals.PercentageGain.InexactFloat64())
		row++
	}

	writeTotals("overall", report.Summary.Overall)
	for _, category := range []model.Category{model.CategoryFund, model.CategorySIP, model.CategoryEquity} {
		if totals, ok := report.Summary.ByCategory[category]; ok {
			writeTotals(string(category), totals)
		}
	}
	writeTotals(fmt.Sprintf("before %s", utils.FormatDate(report.Summary.Timeline.Cutoff)), report.Summary.Timeline.BeforeCutoff)
	writeTotals(fmt.Sprintf("since %s", utils.FormatDate(report.Summary.Timeline.Cutoff)), report.Summary.Timeline.AfterCutoff)

	for _, warning := range report.Summary.Warnings {
		row++
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), "warning: "+warning)
	}

	return nil
}

func (g *XSLSXGenerator) fillSalesSheet(f *excelize.File, report model.ReportData) error {
	sheetName := "Sales"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "G1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "Sale history")

	styleID, err := g.headerStyle(f, "#f9cb9c")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "holding")
	_ = f.SetCellStr(sheetName, "B2", "lot")
	_ = f.SetCellStr(sheetName, "C2", "quantity")
	_ = f.SetCellStr(sheetName, "D2", "sale price")
	_ = f.SetCellStr(sheetName, "E2", "sale value")
	_ = f.SetCellStr(sheetName, "F2", "profit")
	_ = f.SetCellStr(sheetName, "G2", "date")

	row := 3
	for _, group := range report.Sold {
		for _, sale := range group.Sales {
			_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), group.DisplayName)
			_ = f.SetCellInt(sheetName, fmt.Sprintf("B%d", row), sale.LotID)
			_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), sale.QuantitySold.InexactFloat64())
			_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), rupees(sale.SalePrice))
			_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), sale.QuantitySold.InexactFloat64()*rupees(sale.SalePrice))
			_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), rupees(sale.RealizedProfit))
			_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), utils.FormatDate(sale.SaleDate))
			row++
		}
	}

	return nil
}

func rupees(paise int64) float64 {
	return float64(paise) / 100
}
